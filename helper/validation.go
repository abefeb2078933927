package helper

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error text returned is just a list of the struct tags with key "errorTxt".
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over struct i and append the errorTxt tag of every exported
// field tagged mandatory:"yes" that still holds its zero value.
// Nested structs are checked too. A nil pointer counts as unset.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	if i == nil {
		return
	}
	val := reflect.ValueOf(i)
	for val.Kind() == reflect.Ptr { // if we have a pointer...
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ { // for each field in the struct...
		sf := typ.Field(idx)
		if sf.PkgPath != "" { // if the field is not exported...
			continue
		}
		f := val.Field(idx)
		mandatory := sf.Tag.Get("mandatory") == "yes"
		switch f.Kind() {
		case reflect.Struct: // if we are looking at a nested struct and need to go down another level...
			if mandatory && f.IsZero() {
				*errTags = append(*errTags, sf.Tag.Get("errorTxt"))
				continue
			}
			GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
		case reflect.Slice, reflect.Map:
			if mandatory && f.Len() == 0 {
				*errTags = append(*errTags, sf.Tag.Get("errorTxt"))
			}
		default:
			if mandatory && f.IsZero() { // if the field is its zero value and it is mandatory...
				*errTags = append(*errTags, sf.Tag.Get("errorTxt"))
			}
		}
	}
}
