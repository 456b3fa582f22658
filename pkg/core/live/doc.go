// Package live runs a real-time multimodal assistant session.
//
// A Controller owns at most one session at a time. While the session is
// active two independent producers feed the transport: a frame sampler that
// sends one downscaled JPEG still per FrameInterval, and the microphone track
// that delivers fixed-size sample blocks encoded as 16 kHz PCM. Inbound audio
// is decoded and handed to a Scheduler, which plays buffers back to back on
// the output clock and can drop everything queued when the model signals an
// interruption.
//
// # State Machine
//
//	Idle → Opening → Active → Closing → Idle
//
// Start moves Idle to Opening and connects asynchronously. The transport's
// open callback moves the session to Active and starts both producers. A user
// stop, a transport error, a transport close or Unmount tears the session down
// through Closing back to Idle. Nothing reconnects automatically.
//
// Sends issued before the handshake resolves are held by a send gate and
// flushed in order once the connection is available.
package live
