// Package models holds the four record kinds the tracker stores (foods,
// diary entries, user profiles and calorie expenditure) together with the
// Collection enum that names where each kind lives.
//
// Every kind carries an opaque id and createdAt/updatedAt in epoch
// milliseconds. updatedAt is the only versioning signal used by sync.
// Optional fields are pointers; nil means the field is absent on the wire.
package models
