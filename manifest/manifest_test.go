package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restate.dev/sdk-go-core/restate"
)

func echoHandler(fc restate.StatelessContext, input []byte) ([]byte, error) { return input, nil }

func newPopulatedRegistry(t *testing.T) *restate.Registry {
	t.Helper()
	r := restate.NewRegistry()
	r.Register("greeter", restate.KindService, &restate.HandlerDescriptor{
		Name:             "greet",
		Shape:            restate.ShapeStateless,
		Handler:          echoHandler,
		InputRequired:    true,
		InputType:        "application/json",
		OutputType:       "application/json",
		OutputSetIfEmpty: true,
	})
	retention := int64(86400000)
	ingressPrivate := true
	r.Register("ticket", restate.KindVirtualObject, &restate.HandlerDescriptor{
		Name:                   "close",
		Shape:                  restate.ShapeExclusiveKeyed,
		Handler:                echoHandler,
		JournalRetentionMillis: &retention,
		IngressPrivate:         &ingressPrivate,
	})
	r.Finalize()
	return r
}

func TestBuildProducesServiceAndHandlerShapes(t *testing.T) {
	r := newPopulatedRegistry(t)
	m := Build(r, "BIDI_STREAM")

	assert.Equal(t, "BIDI_STREAM", m.ProtocolMode)
	assert.Equal(t, MinProtocolVersion, m.MinProtocolVersion)
	assert.Equal(t, MaxProtocolVersion, m.MaxProtocolVersion)
	require.Len(t, m.Services, 2)

	byName := map[string]Service{}
	for _, s := range m.Services {
		byName[s.Name] = s
	}

	greeter := byName["greeter"]
	assert.Equal(t, "SERVICE", greeter.Ty)
	require.Len(t, greeter.Handlers, 1)
	assert.Equal(t, "greet", greeter.Handlers[0].Name)
	assert.Equal(t, "", greeter.Handlers[0].Ty)
	assert.True(t, greeter.Handlers[0].Input.Required)
	assert.True(t, greeter.Handlers[0].Output.SetContentTypeIfEmpty)

	ticket := byName["ticket"]
	assert.Equal(t, "VIRTUAL_OBJECT", ticket.Ty)
	require.Len(t, ticket.Handlers, 1)
	assert.Equal(t, "EXCLUSIVE", ticket.Handlers[0].Ty)
	require.NotNil(t, ticket.Handlers[0].JournalRetentionMillis)
	assert.Equal(t, int64(86400000), *ticket.Handlers[0].JournalRetentionMillis)
	require.NotNil(t, ticket.Handlers[0].IngressPrivate)
	assert.True(t, *ticket.Handlers[0].IngressPrivate)
}

func TestBuildMarshalsCamelCaseFieldNames(t *testing.T) {
	r := newPopulatedRegistry(t)
	m := Build(r, "BIDI_STREAM")

	encoded, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(encoded, &raw))
	assert.Contains(t, raw, "protocolMode")
	assert.Contains(t, raw, "minProtocolVersion")
	assert.Contains(t, raw, "maxProtocolVersion")
	assert.Contains(t, raw, "services")
}

func TestBuildOutputPassesSchemaValidation(t *testing.T) {
	r := newPopulatedRegistry(t)
	m := Build(r, "REQUEST_RESPONSE")
	assert.NoError(t, Validate(m))
}

func TestValidateRejectsUnknownProtocolMode(t *testing.T) {
	m := &Manifest{
		ProtocolMode:       "NOT_A_MODE",
		MinProtocolVersion: MinProtocolVersion,
		MaxProtocolVersion: MaxProtocolVersion,
	}
	assert.Error(t, Validate(m))
}

func TestNegotiateDefaultsToV1OnEmptyOrWildcardAccept(t *testing.T) {
	mt, ok := Negotiate("")
	require.True(t, ok)
	assert.Equal(t, MimeV1, mt)

	mt, ok = Negotiate("*/*")
	require.True(t, ok)
	assert.Equal(t, MimeV1, mt)
}

func TestNegotiatePicksHighestMutuallySupportedVersion(t *testing.T) {
	mt, ok := Negotiate(MimeV1 + ", " + MimeV3 + ";q=0.9, " + MimeV2)
	require.True(t, ok)
	assert.Equal(t, MimeV3, mt)
}

func TestNegotiateFailsWhenNoVersionOverlaps(t *testing.T) {
	_, ok := Negotiate("application/vnd.restate.endpointmanifest.v99+json")
	assert.False(t, ok)
}
