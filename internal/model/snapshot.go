package model

import (
	"encoding/json"
	"time"
)

// SnapshotFormatVersion tags the portable snapshot layout.
const SnapshotFormatVersion = "2.0"

// Snapshot is the portable serialized form of the entire forest: every node
// (including soft-deleted ones), every version and every grant, plus any
// foreign collections bundled by the surrounding application.
type Snapshot struct {
	Version   string       `json:"version"`
	Timestamp time.Time    `json:"timestamp"`
	Data      SnapshotData `json:"data"`
}

// SnapshotData holds the snapshot collections. Extra carries collections this
// core does not own; they round-trip through backup and restore untouched.
type SnapshotData struct {
	Nodes    []Node
	Versions []Version
	Grants   []PermissionGrant
	Extra    map[string]json.RawMessage
}

const (
	keyNodes    = "nodes"
	keyVersions = "versions"
	keyGrants   = "permissionGrants"
)

// MarshalJSON emits the owned collections under their fixed keys and inlines
// Extra collections next to them.
func (d SnapshotData) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}
	var err error
	if out[keyNodes], err = json.Marshal(d.Nodes); err != nil {
		return nil, err
	}
	if out[keyVersions], err = json.Marshal(d.Versions); err != nil {
		return nil, err
	}
	if out[keyGrants], err = json.Marshal(d.Grants); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the owned collections out and keeps everything else in
// Extra verbatim.
func (d *SnapshotData) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw[keyNodes]; ok {
		if err := json.Unmarshal(v, &d.Nodes); err != nil {
			return err
		}
		delete(raw, keyNodes)
	}
	if v, ok := raw[keyVersions]; ok {
		if err := json.Unmarshal(v, &d.Versions); err != nil {
			return err
		}
		delete(raw, keyVersions)
	}
	if v, ok := raw[keyGrants]; ok {
		if err := json.Unmarshal(v, &d.Grants); err != nil {
			return err
		}
		delete(raw, keyGrants)
	}
	if len(raw) > 0 {
		d.Extra = raw
	}
	return nil
}
