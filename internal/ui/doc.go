// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for library synchronization:
//  1. [StatusView] : Summarize tracked directories per status
//  2. [ConfirmView] : Confirm a scan-and-import run
//  3. [RunningView] : Monitor real-time progress updates
//  4. [ResultView] : Display scan and import outcomes
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the Engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (enter, esc, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
