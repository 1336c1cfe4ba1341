package models

// Identity is embedded in every record. The backend fills either ID or
// MongoID depending on its storage mode; TempID marks a record inserted
// locally that the backend has not confirmed yet.
type Identity struct {
	MongoID ID     `json:"_id,omitempty"`
	ID      ID     `json:"id,omitempty"`
	TempID  string `json:"tempId,omitempty"`

	// accepted is a local handle for a record the backend took without
	// echoing what it stored. It never leaves the process.
	accepted string
}

// Ref returns the matching key of the record.
func (i Identity) Ref() Ref {
	return Ref{MongoID: i.MongoID, ID: i.ID, TempID: i.TempID, Accepted: i.accepted}
}

// Stamp marks the record as provisional.
func (i *Identity) Stamp(tempID string) {
	i.TempID = tempID
}

// Confirm drops the provisional marker.
func (i *Identity) Confirm() {
	i.TempID = ""
	i.accepted = ""
}

// Accept drops the provisional marker of a record the backend stored without
// returning it, keeping a local handle until a load brings in the real one.
func (i *Identity) Accept() {
	if i.accepted == "" {
		i.accepted = i.TempID
	}
	i.TempID = ""
}

// Ref identifies a record for update, delete and merge targeting.
type Ref struct {
	MongoID  ID
	ID       ID
	TempID   string
	Accepted string
}

// RefOf builds a Ref from an identifier taken from a URL or form. The value
// is matched against both id fields.
func RefOf(id ID) Ref {
	return Ref{ID: id}
}

// Key is the preferred identifier: _id, then id, then the provisional id.
func (r Ref) Key() ID {
	switch {
	case !r.MongoID.IsZero():
		return r.MongoID
	case !r.ID.IsZero():
		return r.ID
	default:
		return ID(r.TempID)
	}
}

// IsZero reports whether the reference carries no identifier at all.
func (r Ref) IsZero() bool {
	return r.MongoID.IsZero() && r.ID.IsZero() && r.TempID == "" && r.Accepted == ""
}

// Provisional reports whether the reference only has a local identifier.
func (r Ref) Provisional() bool {
	return r.TempID != "" && r.MongoID.IsZero() && r.ID.IsZero()
}

// Unconfirmed reports whether the backend accepted the record but never
// told which identifier it got.
func (r Ref) Unconfirmed() bool {
	return r.Accepted != "" && r.TempID == "" && r.MongoID.IsZero() && r.ID.IsZero()
}

// Matches reports whether two references point at the same record. When
// both carry _id it decides alone; otherwise id, the preferred key of each
// side, and finally the local identifiers are compared.
func (r Ref) Matches(o Ref) bool {
	if !r.MongoID.IsZero() && !o.MongoID.IsZero() {
		return r.MongoID.Equal(o.MongoID)
	}
	if !r.ID.IsZero() && r.ID.Equal(o.ID) {
		return true
	}
	if k := r.permanentKey(); !k.IsZero() && k.Equal(o.permanentKey()) {
		return true
	}
	if r.TempID != "" && r.TempID == o.TempID {
		return true
	}
	return r.Accepted != "" && r.Accepted == o.Accepted
}

func (r Ref) permanentKey() ID {
	if !r.MongoID.IsZero() {
		return r.MongoID
	}
	return r.ID
}
