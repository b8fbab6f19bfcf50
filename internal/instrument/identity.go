package instrument

import (
	"fmt"
	"strings"
)

// Identity is the parsed reply to the *IDN? query
type Identity struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Firmware     string `json:"firmware"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s %s (%s)", id.Manufacturer, id.Model, id.Serial)
}

// ParseIdentity splits a "MANUFACTURER,MODEL,SERIAL,FIRMWARE" reply.
// Missing trailing fields are left empty.
func ParseIdentity(reply string) (Identity, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Identity{}, fmt.Errorf("%w: empty identity", ErrMalformedReply)
	}

	fields := strings.SplitN(reply, ",", 4)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 2 || fields[1] == "" {
		return Identity{}, fmt.Errorf("%w: identity %q has no model", ErrMalformedReply, reply)
	}

	id := Identity{
		Manufacturer: fields[0],
		Model:        fields[1],
	}
	if len(fields) > 2 {
		id.Serial = fields[2]
	}
	if len(fields) > 3 {
		id.Firmware = fields[3]
	}
	return id, nil
}
