// Package bode measures the frequency response of a device under test with
// an oscilloscope and a function generator.
//
// A Measurement is a finite-state machine that performs exactly one state's
// work per call to Step: the initial instrument setup, the per-frequency
// scaling, the acquisition of one sample, and the final outlier filtering.
// Run drives a Measurement to completion, checking for cancellation between
// states and reporting progress, log, result and error events.
//
// Input impedance is measured with the same sweep, with the generator
// channel as input, and post-processed by Impedance.
package bode
