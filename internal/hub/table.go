package hub

import "sort"

// table is the hub's sparse UID→device map plus its name→UID secondary
// index (§9 "Device table & cycles"). The hub owns every wrapper by
// value-through-pointer inside this map; nothing outside the package
// holds a reference to a device.
type table struct {
	byUID  map[uint8]*device
	byName map[string]uint8
}

func newTable() *table {
	return &table{
		byUID:  make(map[uint8]*device),
		byName: make(map[string]uint8),
	}
}

func (t *table) get(uid uint8) (*device, bool) {
	d, ok := t.byUID[uid]
	return d, ok
}

func (t *table) add(d *device) {
	t.byUID[d.uid] = d
}

// register records a device's name once it has identified itself
// (§4.3.1 DeviceInfoAnw handling), keeping byName and device.name
// bijective over Running devices (invariant 5).
func (t *table) register(d *device, name string) {
	if d.name != "" {
		delete(t.byName, d.name)
	}
	d.name = name
	t.byName[name] = d.uid
}

func (t *table) byNameLookup(name string) (*device, bool) {
	uid, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.get(uid)
}

// orderedUIDs returns every known UID in ascending order, so process()
// visits devices deterministically (§5 "visited in UID order").
func (t *table) orderedUIDs() []uint8 {
	uids := make([]uint8, 0, len(t.byUID))
	for uid := range t.byUID {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}
