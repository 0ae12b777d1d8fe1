package transport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/rover/pkg/rover"
)

func TestRecorder_WritesUDPPackets(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, nil)
	require.NoError(t, err)
	rec.now = func() time.Time { return time.Unix(1700000000, 0) }

	local := &net.UDPAddr{IP: net.IPv6unspecified, Port: 5005}
	remote := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 239), Port: 5005}
	rec.Tap(local, remote, rover.Encode(50, 50))
	rec.Tap(nil, nil, rover.Encode(-5, 7))
	assert.Equal(t, 2, rec.Packets())
	require.NoError(t, rec.Close())

	r, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	var payloads []string
	var dsts []string
	for {
		data, ci, err := r.ReadPacketData()
		if err != nil {
			break
		}
		assert.Equal(t, int64(1700000000), ci.Timestamp.Unix())

		pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
		udpLayer := pkt.Layer(layers.LayerTypeUDP)
		require.NotNil(t, udpLayer)
		udp := udpLayer.(*layers.UDP)
		payloads = append(payloads, string(udp.Payload))

		ipLayer := pkt.Layer(layers.LayerTypeIPv4)
		require.NotNil(t, ipLayer)
		dsts = append(dsts, ipLayer.(*layers.IPv4).DstIP.String())
	}

	assert.Equal(t, []string{string(rover.Encode(50, 50)), string(rover.Encode(-5, 7))}, payloads)
	assert.Equal(t, []string{"192.168.1.239", "0.0.0.0"}, dsts)
}

func TestCreateRecorder(t *testing.T) {
	path := t.TempDir() + "/session.pcap"
	rec, err := CreateRecorder(path, nil)
	require.NoError(t, err)
	rec.Tap(nil, &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 6000}, rover.Encode(1, 1))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
}
