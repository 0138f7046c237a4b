package mpegts

import "sort"

// programMap tracks which PIDs carry PMT sections.
type programMap struct {
	m map[uint16]bool
}

func newProgramMap() *programMap {
	return &programMap{m: make(map[uint16]bool)}
}

func (pm *programMap) addPMTPID(pid uint16) {
	pm.m[pid] = true
}

func (pm *programMap) isPSI(pid uint16) bool {
	return pid == pidPAT || pm.m[pid]
}

// ccResult classifies a packet against the PID's continuity counter.
type ccResult int

const (
	ccInOrder ccResult = iota
	ccDuplicate
	ccGap
)

// packetAccumulator buffers packets for a single PID until a flush trigger.
// After a continuity gap it discards packets until the next unit start so
// that a unit missing its middle is never handed to a parser.
type packetAccumulator struct {
	pid        uint16
	packets    []*Packet
	programMap *programMap

	lastCC  uint8
	seenCC  bool
	synced  bool
	dupSeen bool
}

func newPacketAccumulator(pid uint16, pm *programMap) *packetAccumulator {
	return &packetAccumulator{pid: pid, programMap: pm}
}

// checkCC compares p's counter with the last counter seen on this PID.
// Only packets carrying a payload advance the counter. A repeated counter
// is allowed once as a duplicate.
func (pa *packetAccumulator) checkCC(p *Packet) ccResult {
	cc := p.Header.ContinuityCounter
	if !p.Header.HasPayload {
		return ccInOrder
	}
	if !pa.seenCC || p.Header.DiscontinuityIndicator {
		pa.seenCC, pa.lastCC, pa.dupSeen = true, cc, false
		return ccInOrder
	}
	switch cc {
	case (pa.lastCC + 1) & 0x0F:
		pa.lastCC, pa.dupSeen = cc, false
		return ccInOrder
	case pa.lastCC:
		if !pa.dupSeen {
			pa.dupSeen = true
			return ccDuplicate
		}
	}
	pa.lastCC, pa.dupSeen = cc, false
	return ccGap
}

// add feeds one packet and returns a completed unit's packets, if any,
// along with the packet's continuity classification.
func (pa *packetAccumulator) add(p *Packet) ([]*Packet, ccResult) {
	res := pa.checkCC(p)
	switch res {
	case ccDuplicate:
		return nil, res
	case ccGap:
		pa.packets = nil
		pa.synced = false
	}

	if !p.Header.HasPayload {
		return nil, res
	}

	var flushed []*Packet
	if p.Header.PayloadUnitStartIndicator {
		if len(pa.packets) > 0 {
			flushed = pa.packets
		}
		pa.packets = nil
		pa.synced = true
	}
	if !pa.synced {
		return flushed, res
	}

	pa.packets = append(pa.packets, p)

	if flushed == nil && pa.programMap.isPSI(pa.pid) && isPSIComplete(pa.packets) {
		flushed = pa.packets
		pa.packets = nil
	}
	return flushed, res
}

// reset drops any partial unit, as after a transport error.
func (pa *packetAccumulator) reset() {
	pa.packets = nil
	pa.synced = false
}

func (pa *packetAccumulator) flush() []*Packet {
	if len(pa.packets) == 0 {
		return nil
	}
	flushed := pa.packets
	pa.packets = nil
	return flushed
}

// isPSIComplete checks whether the accumulated payloads contain a complete PSI section.
func isPSIComplete(packets []*Packet) bool {
	var payload []byte
	for _, p := range packets {
		payload = append(payload, p.Payload...)
	}
	if len(payload) < 1 {
		return false
	}

	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return false
	}

	for offset < len(payload) {
		if payload[offset] == 0xFF {
			return true
		}
		if offset+3 > len(payload) {
			return false
		}
		if payload[offset+1]&0x80 == 0 {
			return true // zero padding
		}
		sectionLength := int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2])
		if offset+3+sectionLength > len(payload) {
			return false
		}
		offset += 3 + sectionLength
	}
	return true
}

// packetPool manages per-PID accumulators.
type packetPool struct {
	accs       map[uint16]*packetAccumulator
	programMap *programMap
}

func newPacketPool(pm *programMap) *packetPool {
	return &packetPool{
		accs:       make(map[uint16]*packetAccumulator),
		programMap: pm,
	}
}

func (pp *packetPool) get(pid uint16) *packetAccumulator {
	acc, ok := pp.accs[pid]
	if !ok {
		acc = newPacketAccumulator(pid, pp.programMap)
		pp.accs[pid] = acc
	}
	return acc
}

// dump flushes every accumulator in PID order so PAT (PID 0) comes first.
func (pp *packetPool) dump() [][]*Packet {
	pids := make([]int, 0, len(pp.accs))
	for pid := range pp.accs {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)

	var all [][]*Packet
	for _, pid := range pids {
		if packets := pp.accs[uint16(pid)].flush(); packets != nil {
			all = append(all, packets)
		}
	}
	return all
}
