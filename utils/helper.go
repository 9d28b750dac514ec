package utils

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func ToDoc(v interface{}) (doc *bson.D, err error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return
	}

	err = bson.Unmarshal(data, &doc)
	return
}

func StringInSlice(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// AppendUnique appends a to list unless it is already there.
func AppendUnique(list []string, a string) []string {
	if StringInSlice(a, list) {
		return list
	}
	return append(list, a)
}

func RemoveString(list []string, a string) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		if b != a {
			out = append(out, b)
		}
	}
	return out
}

func ToRawMessage(s interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func IsValidName(s string) (bool, error) {
	if len(strings.TrimSpace(s)) == 0 {
		return false, errors.New("name can not empty")
	}

	if len(s) > 50 {
		return false, errors.New("name to long, max 50 characters")
	}

	return true, nil
}

func IsValidMessage(s string) (bool, error) {
	if len(strings.TrimSpace(s)) == 0 {
		return false, errors.New("message can not empty")
	}

	if len(s) > 4096 {
		return false, errors.New("message to long, max 4096 characters")
	}

	return true, nil
}

func IsValidEmail(s string) bool {
	return govalidator.IsEmail(s)
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func IsValidUid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsValidExternalID accepts the opaque ids handed out by the identity
// provider: non-empty, no whitespace, no path separators.
func IsValidExternalID(s string) bool {
	if len(s) == 0 || len(s) > 128 {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n/\\")
}

func GetRandomUUID() string {
	return uuid.New().String()
}
