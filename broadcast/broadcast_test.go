package broadcast

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/session"
)

type recordingConn struct {
	frames [][]byte
	fail   bool
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	if c.fail {
		return errors.New("closed")
	}
	c.frames = append(c.frames, data)
	return nil
}
func (c *recordingConn) Close() error                         { return nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) SetHeartbeat(time.Duration)           {}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestBroadcastToUsers(t *testing.T) {
	sessions := session.NewManager()
	alice1, alice2, bob, broken := &recordingConn{}, &recordingConn{}, &recordingConn{}, &recordingConn{fail: true}
	sessions.Add(session.NewSession("s1", alice1, "alice", nil))
	sessions.Add(session.NewSession("s2", alice2, "alice", nil))
	sessions.Add(session.NewSession("s3", bob, "bob", nil))
	sessions.Add(session.NewSession("s4", broken, "carol", nil))

	b := NewSessionBroadcaster(sessions)
	assert.NoError(t, b.BroadcastToUsers([]string{"alice", "dave"}, network.MsgTypeEvent, []byte("x")))
	assert.Len(t, alice1.frames, 1)
	assert.Len(t, alice2.frames, 1)
	assert.Empty(t, bob.frames)

	assert.Error(t, b.BroadcastToUsers([]string{"carol", "bob"}, network.MsgTypeEvent, []byte("y")))
	assert.Len(t, bob.frames, 1, "a failed recipient does not stop delivery")

	_ = b.BroadcastToAll(network.MsgTypeEvent, []byte("z"))
	assert.Len(t, alice1.frames, 2)
	assert.Len(t, bob.frames, 2)
}
