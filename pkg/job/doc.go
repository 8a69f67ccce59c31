// Package job defines the cut job handed to a driver by the editor.
//
// A CutJob is an ordered list of paths plus the settings to cut them with.
// Coordinates are in inches (or millimeters for a plotter configured in
// millimeter mode). The package performs no geometry editing; drivers
// translate and transmit jobs as given.
package job
