package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/gwillem/rover/pkg/rover"
)

const snapLen = 65536

var (
	recorderSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	recorderDstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Recorder writes every frame it taps into a pcap stream as a synthesized
// Ethernet/IP/UDP packet, so sessions can be inspected with standard tools.
type Recorder struct {
	mu      sync.Mutex
	w       *pcapgo.Writer
	closer  io.Closer
	now     func() time.Time
	packets int
	errors  int
	logger  *slog.Logger
}

// NewRecorder writes a pcap header to w and returns a recorder.
func NewRecorder(w io.Writer, logger *slog.Logger) (*Recorder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{w: pw, now: time.Now, logger: logger}, nil
}

// CreateRecorder creates (or truncates) a pcap file at path.
func CreateRecorder(path string, logger *slog.Logger) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	r, err := NewRecorder(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Tap implements Tap. Encoding failures are counted and logged, never
// returned to the sender.
func (r *Recorder) Tap(local, remote *net.UDPAddr, frame rover.Frame) {
	data, err := packetFor(local, remote, frame)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		err = r.w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     r.now(),
			CaptureLength: len(data),
			Length:        len(data),
		}, data)
	}
	if err != nil {
		r.errors++
		r.logger.Warn("transport: recording frame failed", "error", err)
		return
	}
	r.packets++
}

// Packets returns the number of frames written.
func (r *Recorder) Packets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packets
}

// Close closes the underlying file, if the recorder owns one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func packetFor(local, remote *net.UDPAddr, frame rover.Frame) ([]byte, error) {
	src := addrOrZero(local)
	dst := addrOrZero(remote)

	eth := &layers.Ethernet{
		SrcMAC:       recorderSrcMAC,
		DstMAC:       recorderDstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port),
		DstPort: layers.UDPPort(dst.Port),
	}

	var network gopacket.SerializableLayer
	srcIP, dstIP := src.IP.To4(), dst.IP.To4()
	if srcIP != nil && dstIP != nil {
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    srcIP,
			DstIP:    dstIP,
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		network = ip
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      src.IP.To16(),
			DstIP:      dst.IP.To16(),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		network = ip
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, network, udp, gopacket.Payload(frame.Bytes())); err != nil {
		return nil, fmt.Errorf("serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

// addrOrZero maps missing or unspecified addresses to 0.0.0.0 so links
// without IP addressing still produce valid IPv4 packets.
func addrOrZero(a *net.UDPAddr) *net.UDPAddr {
	if a == nil {
		return &net.UDPAddr{IP: net.IPv4zero}
	}
	if a.IP == nil || a.IP.IsUnspecified() {
		return &net.UDPAddr{IP: net.IPv4zero, Port: a.Port}
	}
	return a
}
