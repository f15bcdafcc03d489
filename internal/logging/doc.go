// Package logging builds the zerolog logger shared by coremon's components.
// Components receive a zerolog.Logger value and default to zerolog.Nop(), so
// library code never writes to the terminal unless the command wires a logger in.
package logging
