// Package ui provides terminal output components for the hcat-cfg CLI.
//
// Components render once and exit; the interactive menu lives in
// internal/wizard/tui.
//
//   - Header: command banner with ordered parameters
//   - Progress: bubbles progress bar, driven by probe cells or plan steps
//   - Result: success, failure and warning boxes
//   - Transcript: AT commands and replies for --verbose
//
// Runner ties them together and doubles as an hcdevice observer:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:   "Module Detection",
//	    Command: "hcat-cfg detect",
//	    Params:  []ui.Param{ui.P("Port", "/dev/ttyUSB0")},
//	    Live:    ui.IsTerminal(),
//	})
//	session := hcdevice.NewSession(link, mode, hcdevice.WithObserver(runner.Observer()))
//	err := runner.Run(ctx, func(ctx context.Context, _ ui.StepCallback) ([]ui.Param, error) {
//	    cfg, err := session.Detect(ctx)
//	    return []ui.Param{ui.P("Module", cfg.Summary())}, err
//	})
//
// Logging is silent unless HCAT_LOG_LEVEL is set, so these components own
// the terminal.
package ui
