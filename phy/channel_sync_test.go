package phy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemasher/rtltetra/burst"
	"github.com/bemasher/rtltetra/crc"
	"github.com/bemasher/rtltetra/tetra"
)

// transitionBurst assembles a sync burst whose broadcast block carries the
// given system code and whose second block is scrambled with the code a
// receiver derives from that broadcast block.
func transitionBurst(t *testing.T, systemCode int64, blk2 []byte, code uint32) *burst.Burst {
	t.Helper()
	ccitt := crc.NewCCITT()

	bsch := make([]byte, bschLen-16)
	setField(bsch, 0, 4, systemCode)
	setField(bsch, 4, 6, 5)      // colour code
	setField(bsch, 12, 5, 3)     // frame
	setField(bsch, 17, 6, 4)     // multiframe
	setField(bsch, 31, 10, 262)  // mcc
	setField(bsch, 41, 14, 1234) // mnc
	setField(bsch, 71, 1, 1)     // master link
	setField(bsch, 72, 24, 99)   // source address
	setField(bsch, 96, 8, 0x55)  // repeater address
	bsch = ccitt.AppendBits(bsch)

	blk2 = ccitt.AppendBits(blk2)
	require.Len(t, blk2, blk2Len)

	tx := NewDecoder()
	tx.SetScramblingCode(code)
	blk2 = tx.descramble(blk2)

	b := &burst.Burst{Kind: burst.Sync}
	copy(b.Bits[bschStart:], bsch)
	copy(b.Bits[blk2Start:], blk2)
	return b
}

func syncChannel(delivered *[]tetra.ReceivedData) *tetra.Channel {
	return tetra.NewChannel(tetra.Config{
		ID:            "ch1",
		PHY:           NewDecoder(),
		FlushInterval: time.Hour,
		Deliver: func(recs []tetra.ReceivedData) {
			*delivered = append(*delivered, recs...)
		},
	})
}

// A sync burst that switches the channel to direct mode must have its second
// block read as SCH/S under the scrambling code the broadcast block selects.
func TestChannelDirectTransition(t *testing.T) {
	schs := make([]byte, blk2Len-16)
	setField(schs, 72, 24, 200) // source address
	setField(schs, 96, 8, 9)    // repeater address

	code := tetra.DirectScramblingCode(99, 0x55)
	b := transitionBurst(t, 12, schs, code)

	var delivered []tetra.ReceivedData
	ch := syncChannel(&delivered)
	ch.HandleBurst(b)
	ch.Close()

	assert.Equal(t, tetra.ModeDirect, ch.Mode())

	sources := make(map[string]int)
	for _, rec := range delivered {
		sources[rec.Source]++
	}
	require.Equal(t, 1, sources["BSCH"], "sources: %v", sources)
	require.Equal(t, 1, sources["SCH/S"], "sources: %v", sources)

	// The secondary sync PDU re-keys the scrambler with its own identity.
	assert.Equal(t, tetra.DirectScramblingCode(200, 9), ch.ScramblingCode())
	assert.Less(t, ch.ErrorRate(), 0.01)
}

// On a trunked network the second block is SCH/HD2 under the network's
// scrambling code, not the code in effect before the sync PDU was parsed.
func TestChannelTrunkedSecondBlock(t *testing.T) {
	hd2 := make([]byte, blk2Len-16)
	setField(hd2, 0, 2, 2)     // pdu type
	setField(hd2, 3, 24, 4242) // source address

	code := tetra.ScramblingCode(262, 1234, 5)
	b := transitionBurst(t, 1, hd2, code)

	var delivered []tetra.ReceivedData
	ch := syncChannel(&delivered)
	ch.HandleBurst(b)
	ch.Close()

	assert.Equal(t, tetra.ModeTrunked, ch.Mode())
	assert.Equal(t, code, ch.ScramblingCode())

	var found bool
	for _, rec := range delivered {
		if rec.Source == "SCH/HD2" {
			found = true
			assert.Equal(t, int64(4242), rec.Fields[tetra.FieldSourceAddress])
		}
	}
	require.True(t, found, "records: %v", delivered)
}
