// Package atcmd builds and parses the AT commands understood by HC-05 and
// HC-06 Bluetooth serial modules.
//
// Two mutually incompatible framings exist. Legacy firmware (1.x, the
// "linvor" HC-06) takes commands with no line terminator and answers after a
// long internal delay; replies end by silence, e.g. "AT+VERSION" answers
// "OKlinvorV1.8". Modern firmware (2.x/3.x, every HC-05 and newer HC-06)
// expects "=" or "?" after the keyword and a CRLF terminator:
//
//	AT+VERSION?\r\n     ->  +VERSION:3.0-20170601\r\nOK\r\n
//	AT+UART=38400,0,0\r\n  ->  OK\r\n
//
// Everything here is pure: no I/O and no sleeping. ResponseDelay computes how
// long a caller must wait for a reply, but waiting is left to the caller.
package atcmd
