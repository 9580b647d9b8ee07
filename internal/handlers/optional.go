package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// number accepts both JSON numbers and numeric strings, blank string is zero
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*n = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return n.UnmarshalParam(s)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

// UnmarshalParam implements echo.BindUnmarshaler
func (n *number) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*n = 0
		return nil
	}

	f, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return fmt.Errorf("age must be a number, got %q", param)
	}
	*n = number(f)
	return nil
}

// optionalString remembers whether field was present in payload, explicit null is present and blank
type optionalString struct {
	set   bool
	value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(data, jsonNull) {
		o.value = ""
		return nil
	}
	return json.Unmarshal(data, &o.value)
}

// UnmarshalParam implements echo.BindUnmarshaler
func (o *optionalString) UnmarshalParam(param string) error {
	o.set = true
	o.value = param
	return nil
}

func (o optionalString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

type optionalNumber struct {
	set   bool
	value number
}

func (o *optionalNumber) UnmarshalJSON(data []byte) error {
	o.set = true
	return o.value.UnmarshalJSON(data)
}

// UnmarshalParam implements echo.BindUnmarshaler
func (o *optionalNumber) UnmarshalParam(param string) error {
	o.set = true
	return o.value.UnmarshalParam(param)
}

func (o optionalNumber) ptr() *float64 {
	if !o.set {
		return nil
	}
	v := float64(o.value)
	return &v
}
