package headunit

import (
	"time"

	"github.com/z9yaya/AAM-headunit/pkg/aaproto"
)

// VideoFocusRequestor identifies who is asking the connection to grant or
// release the Android Auto video surface, mirroring the three-way split the
// original video manager made between the phone, the head unit itself, and
// a competing native surface such as a reversing camera.
type VideoFocusRequestor int32

const (
	VideoFocusRequestorPhone VideoFocusRequestor = iota
	VideoFocusRequestorHeadUnit
	VideoFocusRequestorBackupCamera
)

// RequestVideoFocus sends a VideoFocus message on channel granting
// (hasFocus true) or releasing (hasFocus false) the AA video surface on
// behalf of requestor. A grant triggered by the backup camera relinquishing
// its own surface is delayed by Config.BackupCameraFocusDelay so the head
// unit's compositor has time to actually switch surfaces before Android
// Auto starts drawing again; every other grant or release is sent
// immediately (spec §9, grounded on VideoManagerClient::requestVideoFocus
// and releaseVideoFocus).
func (c *Connection) RequestVideoFocus(channel byte, requestor VideoFocusRequestor, hasFocus bool) {
	send := func() {
		mode := aaproto.VideoFocusNative
		if hasFocus {
			mode = aaproto.VideoFocusProjected
		}
		msg := aaproto.VideoFocus{Mode: mode, Unrequested: requestor != VideoFocusRequestorPhone}
		if err := c.SendEncryptedMessage(channel, uint16(aaproto.MsgVideoFocus), msg.Marshal()); err != nil {
			c.log.Warn("headunit: failed to send video focus grant: %v", err)
		}
	}

	if hasFocus && requestor == VideoFocusRequestorBackupCamera && c.cfg.BackupCameraFocusDelay > 0 {
		time.AfterFunc(c.cfg.BackupCameraFocusDelay, send)
		return
	}
	send()
}
