package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// run test command
// go test -v                               for all test
// go test -v -run=Test_StringInSlice      for individual func
// go test ./...                            for all test in parent folder
func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'helper.go'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'helper.go'")
}

func Test_StringInSlice(t *testing.T) {
	asserts := assert.New(t)
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}

	asserts.True(StringInSlice("a", keys))
	asserts.True(StringInSlice("g", keys))
	asserts.False(StringInSlice("gg", keys))
	asserts.False(StringInSlice("a", nil))
}

func Test_AppendUnique(t *testing.T) {
	asserts := assert.New(t)

	list := AppendUnique(nil, "a")
	list = AppendUnique(list, "b")
	list = AppendUnique(list, "a")
	asserts.Equal([]string{"a", "b"}, list)
}

func Test_RemoveString(t *testing.T) {
	asserts := assert.New(t)

	asserts.Equal([]string{"a", "c"}, RemoveString([]string{"a", "b", "c", "b"}, "b"))
	asserts.Equal([]string{}, RemoveString(nil, "b"))
}

func Test_InputName(t *testing.T) {
	asserts := assert.New(t)
	valid, _ := IsValidName("Royyan Wibisono")
	asserts.True(valid)

	valid, err := IsValidName("   ")
	asserts.False(valid)
	asserts.Equal("name can not empty", err.Error())

	valid, err = IsValidName("01234567890123456789012345678901234567890123456789a")
	asserts.False(valid)
	asserts.Equal("name to long, max 50 characters", err.Error())
}

func Test_InputMessage(t *testing.T) {
	asserts := assert.New(t)

	valid, _ := IsValidMessage("hello")
	asserts.True(valid)

	valid, err := IsValidMessage("")
	asserts.False(valid)
	asserts.Equal("message can not empty", err.Error())
}

func Test_Email(t *testing.T) {
	asserts := assert.New(t)

	asserts.True(IsValidEmail("ana@example.com"))
	asserts.False(IsValidEmail("ana@"))
	asserts.False(IsValidEmail(""))
	asserts.Equal("ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

func Test_ExternalID(t *testing.T) {
	asserts := assert.New(t)

	asserts.True(IsValidExternalID("100948440327886553471"))
	asserts.False(IsValidExternalID(""))
	asserts.False(IsValidExternalID("a/b"))
	asserts.False(IsValidExternalID("a b"))
	asserts.True(IsValidUid(GetRandomUUID()))
}
