package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Media types understood by the API.
const (
	MediaJSON = "application/json"
	MediaCBOR = "application/cbor"
)

// Codec encodes response bodies and decodes request bodies.
type Codec interface {
	MediaType() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

type jsonCodec struct{}

func (jsonCodec) MediaType() string { return MediaJSON }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// errTrailingData rejects bodies carrying more than one value.
var errTrailingData = errors.New("unexpected data after the first value")

func (jsonCodec) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// cborEnc uses Core Deterministic Encoding: the same value always
// produces the same bytes. Times are RFC 3339 text so clients need no
// tag support.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	var err error
	cborEnc, err = encOptions.EncMode()
	if err != nil {
		panic("httpapi: CBOR encoder initialization failed: " + err.Error())
	}

	// Untyped maps decode with string keys so params look the same as JSON.
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("httpapi: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) MediaType() string { return MediaCBOR }

func (cborCodec) Encode(w io.Writer, v any) error {
	return cborEnc.NewEncoder(w).Encode(v)
}

// Decode reads the whole body; Unmarshal rejects extraneous data.
func (cborCodec) Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return cborDec.Unmarshal(data, v)
}

// JSON and CBOR are the available codecs.
var (
	JSON Codec = jsonCodec{}
	CBOR Codec = cborCodec{}
)

// requestCodec picks the codec for a request body from Content-Type.
func requestCodec(r *http.Request) Codec {
	return codecFor(r.Header.Get("Content-Type"))
}

// responseCodec honours an explicit Accept of CBOR, then falls back to
// the request body codec.
func responseCodec(r *http.Request) Codec {
	if accept := r.Header.Get("Accept"); accept != "" {
		if mt, _, err := mime.ParseMediaType(accept); err == nil && mt == MediaCBOR {
			return CBOR
		}
	}
	return requestCodec(r)
}

func codecFor(contentType string) Codec {
	if contentType == "" {
		return JSON
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err == nil && mt == MediaCBOR {
		return CBOR
	}
	return JSON
}
