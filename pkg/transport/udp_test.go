package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/rover/pkg/rover"
)

func listenLoopback(t *testing.T) (*net.UDPConn, rover.Destination) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	port := conn.LocalAddr().(*net.UDPAddr).Port
	return conn, rover.Destination{Host: "127.0.0.1", Port: port}
}

func readFrame(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 128)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestUDPSession_SendReusesSocket(t *testing.T) {
	rx, dest := listenLoopback(t)

	s, err := NewUDPOpener(time.Second, nil).Open(0)
	require.NoError(t, err)
	defer s.Close()
	assert.NotEmpty(t, s.ID())

	first := rover.Encode(50, 50)
	second := rover.Encode(-10, 1000)
	require.NoError(t, s.Send(context.Background(), dest, first))
	require.NoError(t, s.Send(context.Background(), dest, second))

	assert.Equal(t, string(first), readFrame(t, rx))
	assert.Equal(t, string(second), readFrame(t, rx))
}

func TestUDPSession_PortUnavailable(t *testing.T) {
	opener := NewUDPOpener(time.Second, nil)
	s, err := opener.Open(0)
	require.NoError(t, err)
	defer s.Close()

	port := s.(*udpSession).LocalAddr().(*net.UDPAddr).Port
	_, err = opener.Open(port)
	assert.ErrorIs(t, err, ErrPortUnavailable)
}

func TestUDPSession_ResolutionErrorIsNonFatal(t *testing.T) {
	rx, dest := listenLoopback(t)

	calls := 0
	opener := NewUDPOpener(time.Second, nil)
	opener.Resolve = func(ctx context.Context, host string, port int) (*net.UDPAddr, error) {
		calls++
		if host == "nowhere.invalid" {
			return nil, errors.New("no such host")
		}
		return ResolveUDP(ctx, host, port)
	}
	s, err := opener.Open(0)
	require.NoError(t, err)
	defer s.Close()

	err = s.Send(context.Background(), rover.Destination{Host: "nowhere.invalid", Port: dest.Port}, rover.Encode(1, 1))
	var resErr *HostResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "nowhere.invalid", resErr.Host)

	require.NoError(t, s.Send(context.Background(), dest, rover.Encode(2, 2)))
	assert.Equal(t, string(rover.Encode(2, 2)), readFrame(t, rx))
	assert.Equal(t, 2, calls, "destination is resolved on every send")
}

type flakyConn struct {
	fails  int
	writes int
	closed bool
}

func (c *flakyConn) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	c.writes++
	if c.writes <= c.fails {
		return 0, errors.New("network is unreachable")
	}
	return len(b), nil
}

func (c *flakyConn) SetWriteDeadline(time.Time) error { return nil }
func (c *flakyConn) LocalAddr() net.Addr              { return &net.UDPAddr{IP: net.IPv4zero, Port: 5005} }
func (c *flakyConn) Close() error                     { c.closed = true; return nil }

type fakeFactory struct {
	conn PacketConn
	err  error
}

func (f fakeFactory) ListenUDP(string, *net.UDPAddr) (PacketConn, error) {
	return f.conn, f.err
}

func TestUDPSession_TransmitErrorIsNonFatal(t *testing.T) {
	conn := &flakyConn{fails: 1}
	opener := &UDPOpener{Factory: fakeFactory{conn: conn}}
	s, err := opener.Open(5005)
	require.NoError(t, err)

	dest := rover.Destination{Host: "127.0.0.1", Port: 5005}
	err = s.Send(context.Background(), dest, rover.Encode(1, 1))
	var txErr *TransmitError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "127.0.0.1:5005", txErr.Dest)

	assert.NoError(t, s.Send(context.Background(), dest, rover.Encode(1, 1)))
	assert.Equal(t, 2, conn.writes)
}

func TestUDPSession_SendAfterClose(t *testing.T) {
	conn := &flakyConn{}
	s, err := (&UDPOpener{Factory: fakeFactory{conn: conn}}).Open(5005)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")
	assert.True(t, conn.closed)

	err = s.Send(context.Background(), rover.Destination{Host: "127.0.0.1", Port: 1}, rover.Encode(0, 0))
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Zero(t, conn.writes)
}

func TestUDPOpener_FactoryError(t *testing.T) {
	_, err := (&UDPOpener{Factory: fakeFactory{err: errors.New("address already in use")}}).Open(5005)
	assert.ErrorIs(t, err, ErrPortUnavailable)
	assert.Contains(t, err.Error(), "address already in use")
}

type tapSpy struct {
	frames []rover.Frame
	remote []*net.UDPAddr
}

func (s *tapSpy) Tap(local, remote *net.UDPAddr, frame rover.Frame) {
	s.frames = append(s.frames, frame)
	s.remote = append(s.remote, remote)
}

func TestUDPSession_TapSeesOnlySentFrames(t *testing.T) {
	spy := &tapSpy{}
	conn := &flakyConn{fails: 1}
	s, err := (&UDPOpener{Factory: fakeFactory{conn: conn}, Tap: spy}).Open(5005)
	require.NoError(t, err)

	dest := rover.Destination{Host: "127.0.0.1", Port: 6000}
	_ = s.Send(context.Background(), dest, rover.Encode(1, 1))
	require.NoError(t, s.Send(context.Background(), dest, rover.Encode(2, 2)))

	require.Len(t, spy.frames, 1)
	assert.Equal(t, rover.Encode(2, 2), spy.frames[0])
	assert.Equal(t, 6000, spy.remote[0].Port)
}
