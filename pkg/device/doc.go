// Package device binds the live assistant to local hardware: the malgo
// microphone, an oto speaker fed by a sample-accurate mixer, and an ffmpeg
// camera pipe or still image standing in for the video surface.
package device
