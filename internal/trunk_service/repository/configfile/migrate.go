package configfile

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

var phoneNumberMapType = reflect.TypeOf(map[string]domain.PhoneNumberRecord{})

// legacyNumberListHook migrates the older persisted shape, where phone
// numbers were stored as an array of objects, into the canonical map keyed
// by E.164 number. The hook only fires when the target field is a
// phone-number map and the document supplied a list; the next WriteAll then
// persists the map shape, completing the one-time migration.
func legacyNumberListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != phoneNumberMapType || from.Kind() != reflect.Slice {
			return data, nil
		}

		entries, ok := data.([]interface{})
		if !ok {
			return data, nil
		}

		migrated := make(map[string]interface{}, len(entries))
		for i, entry := range entries {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("legacy phone number entry %d is not an object", i)
			}
			number, _ := obj["number"].(string)
			if number == "" {
				return nil, fmt.Errorf("legacy phone number entry %d has no number field", i)
			}
			migrated[number] = obj
		}
		return migrated, nil
	}
}
