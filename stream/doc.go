// Package stream translates internal computation events into the ordered
// protocol events clients observe. The Translator owns item lifecycle state
// for one turn and survives delegation handoffs.
package stream
