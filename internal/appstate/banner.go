package appstate

import (
	"errors"
	"fmt"

	"gmao-cli/internal/gateway"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Banner is the single top-level message line.
type Banner struct {
	Level       Level
	Text        string
	Dismissible bool
	// Relogin asks the user to authenticate again.
	Relogin bool
}

func (b Banner) Empty() bool { return b.Text == "" }

func Info(text string) Banner { return Banner{Level: LevelInfo, Text: text, Dismissible: true} }

// BannerFor turns an error into the banner shown for it, switching on its gateway kind.
func BannerFor(err error) Banner {
	if err == nil {
		return Banner{}
	}
	var ge *gateway.Error
	if !errors.As(err, &ge) {
		return Banner{Level: LevelError, Text: err.Error(), Dismissible: true}
	}
	switch ge.Kind {
	case gateway.KindPermission:
		return Banner{Level: LevelError, Text: "Permission denied: " + ge.Error() + " Please log in again.", Relogin: true}
	case gateway.KindNetwork:
		return Banner{Level: LevelError, Text: fmt.Sprintf("Cannot reach the server (%s). Check the connection and retry.", ge.Endpoint), Dismissible: true}
	case gateway.KindNotFound:
		return Banner{Level: LevelWarn, Text: "Not found: " + ge.Error(), Dismissible: true}
	case gateway.KindValidation:
		return Banner{Level: LevelWarn, Text: ge.Error(), Dismissible: true}
	case gateway.KindDecode:
		return Banner{Level: LevelError, Text: "Unexpected server response: " + ge.Error(), Dismissible: true}
	default:
		return Banner{Level: LevelError, Text: err.Error(), Dismissible: true}
	}
}
