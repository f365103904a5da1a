package spike

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/neuromapp/eventpassing/sim/queue"
)

// RecordSize is the encoded size of one spike record:
// int32 gid, 4 bytes padding, float64 time, little endian.
const RecordSize = 16

// EncodeRecords appends the wire form of evs to dst and returns it.
// Panics if a gid does not fit in int32.
func EncodeRecords(dst []byte, evs []queue.Event) []byte {
	for _, ev := range evs {
		if ev.Dest < math.MinInt32 || ev.Dest > math.MaxInt32 {
			panic(fmt.Sprintf("EncodeRecords: gid %d overflows int32", ev.Dest))
		}
		var rec [RecordSize]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(int32(ev.Dest)))
		binary.LittleEndian.PutUint64(rec[8:16], math.Float64bits(ev.Time))
		dst = append(dst, rec[:]...)
	}
	return dst
}

// DecodeRecords decodes len(dst) records from src into dst.
func DecodeRecords(dst []queue.Event, src []byte) error {
	if len(src) != len(dst)*RecordSize {
		return fmt.Errorf("decode spike records: have %d bytes, want %d for %d records",
			len(src), len(dst)*RecordSize, len(dst))
	}
	for i := range dst {
		rec := src[i*RecordSize : (i+1)*RecordSize]
		dst[i] = queue.Event{
			Dest: int(int32(binary.LittleEndian.Uint32(rec[0:4]))),
			Time: math.Float64frombits(binary.LittleEndian.Uint64(rec[8:16])),
		}
	}
	return nil
}
