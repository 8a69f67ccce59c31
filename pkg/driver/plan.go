package driver

import (
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
	"github.com/cutline-project/cutline-go/pkg/translate"
)

// Frame is one command as written to the device.
type Frame struct {
	Data []byte

	// Counted marks movement commands. They advance progress and are the
	// reference position for pause and resume.
	Counted bool

	// Cmd is the movement a counted frame encodes.
	Cmd translate.Command
}

// Plan is a job encoded for one protocol.
type Plan struct {
	// Setup frames (speed, pressure) are sent once before the first pass.
	Setup []Frame

	// Pass frames are sent Passes times.
	Pass []Frame

	// Home frames return the tool to the origin after the last pass.
	Home []Frame

	Passes int
}

// PassCount returns the number of counted frames in one pass.
func (p Plan) PassCount() int {
	n := 0
	for _, f := range p.Pass {
		if f.Counted {
			n++
		}
	}
	return n
}

// Total returns the number of counted frames across all passes.
func (p Plan) Total() int {
	return p.PassCount() * max(p.Passes, 1)
}

// Protocol encodes jobs for one device family.
type Protocol interface {
	// Defaults are used for settings neither the job nor its material supply.
	Defaults() material.Preset

	// Plan encodes a validated job with resolved settings.
	Plan(j *job.CutJob, s job.CutSettings) Plan

	// PauseFrame lifts the tool at the position of last. Nil sends nothing.
	PauseFrame(last Frame) []byte

	// ResumeFrame continues from last. Nil sends nothing.
	ResumeFrame(last Frame) []byte
}

// Link describes how to open and greet a device.
type Link struct {
	Options transport.OpenOptions

	// Handshake frames are written once, in order, right after opening.
	Handshake [][]byte

	// Poll starts a background reader for device responses.
	Poll bool

	// OnResponse receives response bytes when Poll is set.
	OnResponse func([]byte)
}
