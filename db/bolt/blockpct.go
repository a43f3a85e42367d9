// Package bolt contains implementations of the DB interfaces used by
// package main.
package bolt

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/bitcoinfees/feecast/feefrac"
	"github.com/bitcoinfees/feecast/forecast"
	"github.com/boltdb/bolt"
)

// BlockEntry is one stored block's percentiles.
type BlockEntry struct {
	Height      int64                     `json:"height"`
	Time        int64                     `json:"time"`
	Percentiles forecast.BlockPercentiles `json:"percentiles"`
}

// blockRecord is the fixed-size on-disk encoding of a BlockEntry value.
type blockRecord struct {
	Time              int64
	P5, P25, P50, P75 int64
}

type blockpctdb struct {
	db        *bolt.DB
	byteOrder binary.ByteOrder
	bucket    []byte
}

// LoadBlockPctDB opens (creating if necessary) the per-height block
// percentile log at dbfile.
func LoadBlockPctDB(dbfile string) (*blockpctdb, error) {
	db, err := bolt.Open(dbfile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	d := &blockpctdb{
		db:        db,
		byteOrder: binary.BigEndian,
		bucket:    []byte("blockpcts"),
	}
	err = d.db.Update(func(tr *bolt.Tx) error {
		_, err = tr.CreateBucketIfNotExists(d.bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *blockpctdb) Put(entries []BlockEntry) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		bkt := tr.Bucket(d.bucket)
		for _, e := range entries {
			rec := blockRecord{
				Time: e.Time,
				P5:   e.Percentiles.P5.FeePerKvB(),
				P25:  e.Percentiles.P25.FeePerKvB(),
				P50:  e.Percentiles.P50.FeePerKvB(),
				P75:  e.Percentiles.P75.FeePerKvB(),
			}
			value := new(bytes.Buffer)
			if err := binary.Write(value, d.byteOrder, rec); err != nil {
				return err
			}
			if err := bkt.Put(itob(e.Height), value.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the entries with height in [start, end], height-sorted.
func (d *blockpctdb) Get(start, end int64) ([]BlockEntry, error) {
	var entries []BlockEntry
	err := d.db.View(func(tr *bolt.Tx) error {
		c := tr.Bucket(d.bucket).Cursor()
		startkey, endkey := itob(start), itob(end)
		for k, v := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, v = c.Next() {
			var rec blockRecord
			if err := binary.Read(bytes.NewBuffer(v), d.byteOrder, &rec); err != nil {
				return err
			}
			entries = append(entries, BlockEntry{
				Height: btoi(k),
				Time:   rec.Time,
				Percentiles: forecast.BlockPercentiles{
					P5:  feefrac.FeeRate(rec.P5),
					P25: feefrac.FeeRate(rec.P25),
					P50: feefrac.FeeRate(rec.P50),
					P75: feefrac.FeeRate(rec.P75),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *blockpctdb) Delete(start, end int64) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		b := tr.Bucket(d.bucket)
		c := b.Cursor()
		startkey, endkey := itob(start), itob(end)
		var del [][]byte
		for k, _ := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, _ = c.Next() {
			del = append(del, k)
		}
		for _, k := range del {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *blockpctdb) Close() error {
	return d.db.Close()
}

// itob encodes an int64 as a big-endian key, so that keys sort by height.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
