// Package regionxfer serializes compact regions over QUIC so two
// processes can share compacted heap data without copying compacted
// objects individually. This is optional network transport kept out
// of the core heap package so that package carries zero network
// dependency of its own.
package regionxfer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/quic-go/qpack"
	"github.com/quic-go/quic-go"

	"github.com/zopsicle/snowflake-sub000/internal/heap"
)

// A header block is qpack-encoded at the start of every region stream,
// mirroring how an HTTP/3 stream opens with a compressed header block
// before the body: two pseudo-headers name the region and its block
// count so a receiver can size its read loop before parsing any block.
const (
	headerRegionID    = ":region-id"
	headerBlockCount  = ":block-count"
)

// SendCompactRegion serializes region's blocks onto stream: a
// qpack-encoded header block naming the region and block count,
// followed by each block as a big-endian length prefix and its raw bytes.
func SendCompactRegion(stream quic.SendStream, regionID string, region *heap.CompactRegion) error {
	blocks := region.ExportBlocks()

	var headerBuf []byte
	enc := qpack.NewEncoder(sliceWriter{&headerBuf})
	if err := enc.WriteField(qpack.HeaderField{Name: headerRegionID, Value: regionID}); err != nil {
		return fmt.Errorf("regionxfer: encoding region-id header: %w", err)
	}
	if err := enc.WriteField(qpack.HeaderField{Name: headerBlockCount, Value: fmt.Sprint(len(blocks))}); err != nil {
		return fmt.Errorf("regionxfer: encoding block-count header: %w", err)
	}

	w := bufio.NewWriter(stream)

	if err := writeFrame(w, headerBuf); err != nil {
		return fmt.Errorf("regionxfer: writing header frame: %w", err)
	}

	for i, blk := range blocks {
		if err := writeFrame(w, blk); err != nil {
			return fmt.Errorf("regionxfer: writing block %d: %w", i, err)
		}
	}

	return w.Flush()
}

// RecvCompactRegion reads a region previously written by
// SendCompactRegion and reconstructs it via heap.ImportCompactRegion.
func RecvCompactRegion(stream quic.ReceiveStream) (regionID string, region *heap.CompactRegion, err error) {
	r := bufio.NewReader(stream)

	headerBuf, err := readFrame(r)
	if err != nil {
		return "", nil, fmt.Errorf("regionxfer: reading header frame: %w", err)
	}

	dec := qpack.NewDecoder(nil)
	fields, err := dec.DecodeFull(headerBuf)
	if err != nil {
		return "", nil, fmt.Errorf("regionxfer: decoding header frame: %w", err)
	}

	var blockCount int
	for _, f := range fields {
		switch f.Name {
		case headerRegionID:
			regionID = f.Value
		case headerBlockCount:
			if _, err := fmt.Sscanf(f.Value, "%d", &blockCount); err != nil {
				return "", nil, fmt.Errorf("regionxfer: parsing block-count header: %w", err)
			}
		}
	}

	blocks := make([][]byte, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		blk, err := readFrame(r)
		if err != nil {
			return "", nil, fmt.Errorf("regionxfer: reading block %d: %w", i, err)
		}
		blocks = append(blocks, blk)
	}

	region, err = heap.ImportCompactRegion(blocks)
	if err != nil {
		return "", nil, fmt.Errorf("regionxfer: reconstructing region: %w", err)
	}

	return regionID, region, nil
}

// OpenAndSend dials addr over QUIC, opens one unidirectional stream
// per call, and sends region on it. Intended for a host process that
// wants to hand a compacted heap to a peer without a persistent
// connection.
func OpenAndSend(ctx context.Context, addr string, tlsConf *tls.Config, quicConf *quic.Config, regionID string, region *heap.CompactRegion) error {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConf)
	if err != nil {
		return fmt.Errorf("regionxfer: dialing %s: %w", addr, err)
	}
	defer conn.CloseWithError(0, "")

	stream, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("regionxfer: opening stream: %w", err)
	}
	defer stream.Close()

	return SendCompactRegion(stream, regionID, region)
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// sliceWriter adapts a *[]byte to io.Writer for qpack.NewEncoder.
type sliceWriter struct{ buf *[]byte }

func (s sliceWriter) Write(p []byte) (int, error) {
	*s.buf = append(*s.buf, p...)
	return len(p), nil
}
