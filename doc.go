// Package rover provides a teleoperation client for a differential drive
// rover.
//
// Stick positions are turned into motor intensities and streamed to the
// rover as ASCII control frames every 50 ms over UDP (or a serial cable),
// while the rover's camera stream is rendered through GStreamer.
//
// # Installation
//
//	go install github.com/gwillem/rover/cmd/rover@latest
//
// Video support needs the GStreamer development packages and the gst tag:
//
//	go install -tags gst github.com/gwillem/rover/cmd/rover@latest
//
// # Usage
//
// First, run setup to enter the rover address and check the link:
//
//	rover setup
//
// Then start driving:
//
//	rover drive
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/rover: CLI with setup and drive commands
//   - cmd/rover-stream: headless streamer
//   - pkg/rover: axis mapping, frame encoding and configuration
//   - pkg/transport: UDP and serial sessions, pcap recording
//   - pkg/teleop: control loop and operator inputs
//   - pkg/pipeline: video pipeline lifecycle
//   - pkg/input: gamepad input
package rover
