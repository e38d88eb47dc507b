package block

import "github.com/rm-tablet/lines/wire"

// ReadMigrationInfo reads a MigrationInfo block payload (§4.6): id:1,
// bool:2 = is_device, optional bool:3 = unknown.
func ReadMigrationInfo(c *wire.Codec) (MigrationInfo, error) {
	id, err := c.ReadCrdtId(1)
	if err != nil {
		return MigrationInfo{}, err
	}
	isDevice, err := c.ReadBool(2)
	if err != nil {
		return MigrationInfo{}, err
	}
	m := MigrationInfo{Id: id, IsDevice: isDevice}
	if c.PeekTag(3, wire.WireByte) {
		m.Unknown = c.ReadBoolOptional(3, false)
		m.HasUnknown = true
	}
	return m, nil
}

// WriteMigrationInfo writes a MigrationInfo block payload.
func WriteMigrationInfo(c *wire.Codec, m MigrationInfo) {
	c.WriteCrdtId(1, m.Id)
	c.WriteBool(2, m.IsDevice)
	if m.HasUnknown {
		c.WriteBool(3, m.Unknown)
	}
}
