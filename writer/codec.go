package writer

import "encoding/binary"

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// encodeBlobEntry/decodeBlobEntry use a fixed-width layout rather than a
// general-purpose codec: BlobEntry has no variable-length sum fields (only
// Payload varies in length, placed last), so a flat binary.BigEndian
// encoding is simpler than routing through the JSON envelope the csm
// package's tagged unions need.
func encodeBlobEntry(e BlobEntry) ([]byte, error) {
	buf := make([]byte, 0, 32+36+1+32+32+8+len(e.Payload))
	buf = append(buf, e.Commitment[:]...)
	buf = append(buf, e.DutyID[:]...)
	buf = append(buf, byte(e.Status))
	buf = append(buf, e.CommitTxID[:]...)
	buf = append(buf, e.RevealTxID[:]...)
	var plen [8]byte
	binary.BigEndian.PutUint64(plen[:], uint64(len(e.Payload)))
	buf = append(buf, plen[:]...)
	buf = append(buf, e.Payload...)
	return buf, nil
}

func decodeBlobEntry(b []byte) (BlobEntry, error) {
	var e BlobEntry
	if len(b) < 32+36+1+32+32+8 {
		return e, ErrShortBlobEntry
	}
	off := 0
	copy(e.Commitment[:], b[off:off+32])
	off += 32
	copy(e.DutyID[:], b[off:off+36])
	off += 36
	e.Status = BlobStatus(b[off])
	off++
	copy(e.CommitTxID[:], b[off:off+32])
	off += 32
	copy(e.RevealTxID[:], b[off:off+32])
	off += 32
	plen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	e.Payload = append([]byte(nil), b[off:off+int(plen)]...)
	return e, nil
}
