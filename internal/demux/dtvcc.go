package demux

import (
	"log/slog"
	"slices"

	"github.com/zsiec/ccx"
)

// dtvccInventory reassembles DTVCC packets from cc_type 2/3 triplets and
// records which CEA-708 services carry data. Nothing is decoded to text.
type dtvccInventory struct {
	log      *slog.Logger
	buf      []byte
	services map[int]int // service number -> block count
}

func newDTVCCInventory(log *slog.Logger) *dtvccInventory {
	return &dtvccInventory{log: log, services: make(map[int]int)}
}

func (d *dtvccInventory) add(t ccTriplet) {
	d.addPair(ccx.DTVCCPair{Data: t.data, Start: t.typ == 3})
}

func (d *dtvccInventory) addPair(p ccx.DTVCCPair) {
	if p.Start {
		d.drain()
		d.buf = d.buf[:0]
	}
	d.buf = append(d.buf, p.Data[0], p.Data[1])
}

// drain parses the buffered packet if it is complete.
func (d *dtvccInventory) drain() {
	if len(d.buf) < 1 {
		return
	}
	size := ccx.DTVCCPacketSize(d.buf[0])
	if len(d.buf) < size {
		d.log.Debug("incomplete DTVCC packet", "have", len(d.buf), "want", size)
		return
	}
	for _, block := range ccx.ParseDTVCCPacket(d.buf[:size]) {
		if _, seen := d.services[block.ServiceNum]; !seen {
			d.log.Debug("DTVCC service present", "service", block.ServiceNum)
		}
		d.services[block.ServiceNum]++
	}
}

func (d *dtvccInventory) finish() []int {
	d.drain()
	d.buf = nil
	out := make([]int, 0, len(d.services))
	for svc := range d.services {
		out = append(out, svc)
	}
	slices.Sort(out)
	return out
}
