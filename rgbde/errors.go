package rgbde

// A FormatError reports that the input is not a valid RGBDE container.
type FormatError string

func (e FormatError) Error() string { return "rgbde: invalid format: " + string(e) }

// An UnsupportedEncodingError reports that the container uses a valid but
// unsupported encoding, or that the environment lacks a decode capability.
// Callers can tell "this file is corrupt" (FormatError) apart from "this
// environment cannot decode this file".
type UnsupportedEncodingError string

func (e UnsupportedEncodingError) Error() string {
	return "rgbde: unsupported encoding: " + string(e)
}
