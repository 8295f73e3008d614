// Package normalize converts each provider's raw "list phone numbers"
// payload into canonical RemoteNumberRecords.
//
// There are two deliberately separate entry points: ForDisplay may fall back
// to locally cached numbers when the remote side is unusable, while
// ForReconciliation never does. The reconciliation engine must only ever
// compare against true remote state; feeding it local data would make the
// diff compare the configuration against itself and either declare
// everything in sync or prune records that still exist remotely.
package normalize

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// vapiProviderTag marks BYO numbers in VAPI listings; entries carrying any
// other tag (provider-purchased numbers, etc.) are not ours to track.
const vapiProviderTag = "byo-phone-number"

// elevenLabsEnvelopeKeys are probed in order when the ElevenLabs listing is
// an object wrapping the array instead of a bare array.
var elevenLabsEnvelopeKeys = []string{"phone_numbers", "data", "results", "items"}

// ForReconciliation normalizes a raw listing for the reconciliation engine.
// It never fails: undecodable entries are dropped with a logged reason and
// a wholly unusable payload yields an empty slice. It also never consults
// local data; callers abort the provider pass when the fetch itself failed.
func ForReconciliation(key domain.ProviderKey, raw json.RawMessage, logger *slog.Logger) []domain.RemoteNumberRecord {
	return decodeListing(key, raw, logger)
}

// ForDisplay normalizes a raw listing for display-style callers. Pass a nil
// raw to signal that the remote call failed; the records are then
// synthesized from the configuration snapshot and marked LocalOnly. An
// ElevenLabs listing that decodes to zero usable entries gets the same
// treatment, since that endpoint has been observed returning empty or
// reshaped payloads while numbers still exist.
func ForDisplay(key domain.ProviderKey, raw json.RawMessage, snapshot *domain.Config, logger *slog.Logger) []domain.RemoteNumberRecord {
	if raw == nil {
		logger.Warn("remote listing unavailable, falling back to locally stored numbers", "provider", key)
		return fromLocal(key, snapshot)
	}
	records := decodeListing(key, raw, logger)
	if len(records) == 0 && key == domain.ProviderElevenLabs {
		logger.Warn("remote listing yielded no usable entries, falling back to locally stored numbers", "provider", key)
		return fromLocal(key, snapshot)
	}
	return records
}

// vapiRawNumber is the typed shape of one VAPI listing entry.
type vapiRawNumber struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Number   string `json:"number"`
}

// retellRawNumber is the typed shape of one Retell listing entry; the
// number field has shipped under two casings.
type retellRawNumber struct {
	PhoneNumberID  string `json:"phone_number_id"`
	PhoneNumber    string `json:"phone_number"`
	PhoneNumberAlt string `json:"phoneNumber"`
}

func (r retellRawNumber) number() string {
	if r.PhoneNumber != "" {
		return r.PhoneNumber
	}
	return r.PhoneNumberAlt
}

// elevenLabsRawNumber is the typed shape of one ElevenLabs listing entry.
type elevenLabsRawNumber struct {
	PhoneNumberID  string `json:"phone_number_id"`
	PhoneNumber    string `json:"phone_number"`
	PhoneNumberAlt string `json:"phoneNumber"`
	Number         string `json:"number"`
}

func (r elevenLabsRawNumber) number() string {
	switch {
	case r.PhoneNumber != "":
		return r.PhoneNumber
	case r.PhoneNumberAlt != "":
		return r.PhoneNumberAlt
	}
	return r.Number
}

// decodeListing extracts every decodable entry from raw. Unusable entries
// and unrecognized payload shapes degrade to fewer (or zero) records, never
// to an error.
func decodeListing(key domain.ProviderKey, raw json.RawMessage, logger *slog.Logger) []domain.RemoteNumberRecord {
	entries, ok := listEntries(key, raw)
	if !ok {
		logger.Warn("listing payload is not an array in any recognized shape, treating as empty", "provider", key)
		return nil
	}

	records := make([]domain.RemoteNumberRecord, 0, len(entries))
	for i, entry := range entries {
		rec, reason := decodeEntry(key, entry)
		if reason != "" {
			logger.Debug("dropping listing entry", "provider", key, "index", i, "reason", reason)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// listEntries locates the entry array inside raw. For ElevenLabs a fixed
// ordered list of envelope keys is probed when the top level is an object.
func listEntries(key domain.ProviderKey, raw json.RawMessage) ([]json.RawMessage, bool) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, true
	}

	if key != domain.ProviderElevenLabs {
		return nil, false
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false
	}
	for _, k := range elevenLabsEnvelopeKeys {
		inner, ok := envelope[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &entries); err == nil {
			return entries, true
		}
	}
	return nil, false
}

// decodeEntry decodes one listing entry through the provider's typed raw
// struct. A non-empty reason means the entry is dropped.
func decodeEntry(key domain.ProviderKey, entry json.RawMessage) (domain.RemoteNumberRecord, string) {
	switch key {
	case domain.ProviderVapi:
		var n vapiRawNumber
		if err := json.Unmarshal(entry, &n); err != nil {
			return domain.RemoteNumberRecord{}, "not a VAPI number object: " + err.Error()
		}
		if n.Provider != vapiProviderTag {
			return domain.RemoteNumberRecord{}, "provider tag is not " + vapiProviderTag
		}
		if n.Number == "" {
			return domain.RemoteNumberRecord{}, "missing number field"
		}
		return domain.RemoteNumberRecord{Number: n.Number, RemoteID: n.ID, Raw: entry}, ""

	case domain.ProviderRetell:
		var n retellRawNumber
		if err := json.Unmarshal(entry, &n); err != nil {
			return domain.RemoteNumberRecord{}, "not a Retell number object: " + err.Error()
		}
		if n.number() == "" {
			return domain.RemoteNumberRecord{}, "missing phone_number field"
		}
		return domain.RemoteNumberRecord{Number: n.number(), RemoteID: n.PhoneNumberID, Raw: entry}, ""

	case domain.ProviderElevenLabs:
		var n elevenLabsRawNumber
		if err := json.Unmarshal(entry, &n); err != nil {
			return domain.RemoteNumberRecord{}, "not an ElevenLabs number object: " + err.Error()
		}
		if n.number() == "" {
			return domain.RemoteNumberRecord{}, "missing phone_number field"
		}
		return domain.RemoteNumberRecord{Number: n.number(), RemoteID: n.PhoneNumberID, Raw: entry}, ""
	}
	return domain.RemoteNumberRecord{}, "unsupported provider"
}

// fromLocal synthesizes RemoteNumberRecords from everything the snapshot
// stores for the provider: the global map plus every domain section. The
// records are marked LocalOnly so callers can label them as cached data.
func fromLocal(key domain.ProviderKey, snapshot *domain.Config) []domain.RemoteNumberRecord {
	if snapshot == nil {
		return nil
	}

	byNumber := make(map[string]domain.PhoneNumberRecord)
	if global := snapshot.Provider(key); global != nil {
		for number, rec := range global.PhoneNumbers {
			byNumber[number] = rec
		}
	}
	for _, name := range snapshot.DomainNames() {
		d, ok := snapshot.Domain(name)
		if !ok {
			continue
		}
		sec, ok := d.ExistingSection(key)
		if !ok {
			continue
		}
		for number, rec := range sec.PhoneNumbers {
			byNumber[number] = rec
		}
	}

	numbers := make([]string, 0, len(byNumber))
	for number := range byNumber {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	records := make([]domain.RemoteNumberRecord, 0, len(numbers))
	for _, number := range numbers {
		rec := byNumber[number]
		raw, err := json.Marshal(rec)
		if err != nil {
			raw = nil
		}
		records = append(records, domain.RemoteNumberRecord{
			Number:    number,
			RemoteID:  rec.ProviderID,
			Raw:       raw,
			LocalOnly: true,
		})
	}
	return records
}
