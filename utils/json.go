package utils

import (
	"io"

	json "github.com/bytedance/sonic"
)

// JsonString is obj as compact JSON, or "" when it cannot be marshalled.
func JsonString(obj any) string {
	jsonStr, _ := json.Marshal(obj)
	return string(jsonStr)
}

// WriteJSON writes obj to w as indented JSON terminated by a newline.
func WriteJSON(w io.Writer, obj any) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
