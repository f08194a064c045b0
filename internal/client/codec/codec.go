// Package codec converts records to and from their wire documents.
//
// The same document shape is stored in the local SQLite body column, in the
// remote JSONB column and in backup files. Optional fields whose value is
// absent are omitted from the document, never written as null. Decoding
// rejects documents that miss a required field or carry a field of the wrong
// type with common.ErrMalformedRecord.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
)

// Document is a wire document: a JSON object keyed by field name.
type Document = map[string]any

// Wire field names.
const (
	FieldID        = "id"
	FieldUserID    = "userId"
	FieldDateISO   = "dateISO"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

func Encode(r models.Record) (Document, error) {
	switch v := r.(type) {
	case *models.Food:
		return encodeFood(v), nil
	case *models.Entry:
		return encodeEntry(v), nil
	case *models.UserProfile:
		return encodeUser(v), nil
	case *models.CalorieExpenditure:
		return encodeExpenditure(v), nil
	}
	return nil, fmt.Errorf("%w: unsupported record type %T", common.ErrMalformedRecord, r)
}

func Decode(c models.Collection, doc Document) (models.Record, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: empty document", common.ErrMalformedRecord, c)
	}
	rd := &reader{c: c, doc: doc}

	var rec models.Record
	switch c {
	case models.CollectionFoods:
		rec = decodeFood(rd)
	case models.CollectionEntries:
		rec = decodeEntry(rd)
	case models.CollectionUsers:
		rec = decodeUser(rd)
	case models.CollectionCalorieExpenditure:
		rec = decodeExpenditure(rd)
	default:
		return nil, fmt.Errorf("%w: unknown collection %q", common.ErrMalformedRecord, c)
	}
	if rd.err != nil {
		return nil, rd.err
	}
	if rec.RecordID() == "" {
		return nil, fmt.Errorf("%w: %s: empty id", common.ErrMalformedRecord, c)
	}
	return rec, nil
}

// Marshal encodes r and serialises the document as JSON.
func Marshal(r models.Record) ([]byte, error) {
	doc, err := Encode(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Unmarshal parses JSON bytes into a document and decodes it. Numbers are
// read with UseNumber so millisecond timestamps survive exactly.
func Unmarshal(c models.Collection, data []byte) (models.Record, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return Decode(c, doc)
}

func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedRecord, err)
	}
	return doc, nil
}

// DocumentID returns the id field of doc when it is a non-empty string.
func DocumentID(doc Document) (string, bool) {
	id, ok := doc[FieldID].(string)
	return id, ok && id != ""
}

func EncodeAll(rs []models.Record) ([]Document, error) {
	out := make([]Document, 0, len(rs))
	for _, r := range rs {
		doc, err := Encode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
