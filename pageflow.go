// Package pageflow is a declarative browser workflow engine.
//
// A workflow is an ordered list of commands (navigate, click, type, wait,
// assert, ...) executed one at a time against a Target, a single browser
// page driven over the DevTools protocol. The engine substitutes variables,
// validates and normalizes CSS selectors before every interaction, records a
// structured result per step, and supports mid-run checkpoints.
//
// Sub-packages:
//
//   - target:   the Target capability interface and its chromedp implementation
//   - workflow: step model, YAML parser, variable substitution, execution engine
//   - selector: selector normalization, validation, ranking, disambiguation
//   - digest:   cached structural page summaries used for selector suggestions
//   - runlog:   compact replayable run summaries and their persistence stores
package pageflow

// Version is the current pageflow version.
const Version = "0.3.0"
