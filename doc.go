/*
RTLTETRA is an rtl-sdr receiver for TETRA voice and trunked signaling. It
receives a wideband stream from an rtl_tcp server and demodulates any number
of 25kHz TETRA carriers from it concurrently.

Command-line Flags:

	-channels=""

Sets a yaml file listing the channels to receive. Each entry gives a channel
id and carrier frequency:

  - id: ctrl
    frequency: 392.212500e6
  - id: tch1
    frequency: 392.250000e6
    signaling_only: true

Disabled entries (enabled: false) are parsed but not demodulated.

	-frequency=0

Sets a single carrier frequency in Hz to receive. Used when -channels is not
given. One of the two flags is required.

	-centerfreq=100M

Sets the center frequency of the rtl_tcp server. Defaults to the mean of the
enabled channel frequencies, so a single channel lands at the tuner center.

	-samplerate=2.4M

Sets the sample rate of the rtl_tcp server. Each channel is downconverted
and decimated from this rate to 72kHz, four samples per symbol.

	-signaling=false

Decodes signaling only, traffic timeslots are skipped for every channel.

	-audiofile="/dev/null"

Sets file to dump decoded voice to. Output is raw signed 16-bit little-endian
PCM at 8kHz.

	-duration=0

Sets time to receive for, 0 for infinite. If the time limit expires during
processing of a block it will exit on the next pass through the receive loop.

	-format="plain"

Sets the log output format: plain, csv, json or xml. Defaults to plain.

Decoded messages have the following structure:

	type ReceivedData struct {
		Time    time.Time
		Channel string
		Source  string
		Fields  map[string]int64
	}

Messages are encoded one per line for all formats.

	-server="127.0.0.1:1234"

Sets rtl_tcp server address or hostname and port to connect to.
*/
package main
