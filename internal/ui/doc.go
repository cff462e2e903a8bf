// Package ui renders progress and diagnostics for gitosis-keygen on
// stderr. Standard output carries only the public key, so nothing here
// ever writes to it.
//
// Colors are ANSI codes rendered through Lip Gloss. DisableColors switches
// to plain text for --no-color and NO_COLOR.
//
//	r := ui.NewStepReporter(os.Stderr, isTerminal)
//	r.Begin("Connecting to alice@build")
//	r.Begin("Checking for existing keys") // the previous step succeeds
//	r.Fail()
package ui
