package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MycoBrain/mycobrain-node/pkg/crypto"
	"github.com/MycoBrain/mycobrain-node/pkg/envelope"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

func TestEmitFrameLine(t *testing.T) {
	var buf bytes.Buffer
	h := NewHost(nil, &buf)

	hdr := mdp.Header{
		Magic:   mdp.ProtocolMagic,
		Version: mdp.ProtocolVersion,
		MsgType: mdp.MsgTypeAck,
		Seq:     9,
		Ack:     4,
		Flags:   mdp.FlagIsAck,
		Src:     mdp.EndpointRouter,
		Dst:     mdp.EndpointGateway,
	}
	h.EmitFrame(1234, hdr, nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, float64(1234), line["t_ms"])
	assert.Equal(t, float64(mdp.EndpointRouter), line["src"])
	assert.Equal(t, float64(mdp.EndpointGateway), line["dst"])
	assert.Equal(t, float64(9), line["seq"])
	assert.Equal(t, float64(4), line["ack"])
	assert.Equal(t, float64(mdp.MsgTypeAck), line["type"])
	assert.Equal(t, float64(mdp.FlagIsAck), line["flags"])
	assert.NotContains(t, line, "env")
}

func TestEmitTelemetryWithEnvelope(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	env := envelope.Envelope{
		DeviceID:    "mb-A-01",
		DeviceRole:  "origin",
		Proto:       envelope.ProtoLoRaWAN,
		MsgID:       envelope.NewMsgID(),
		TimestampMS: 1722880000000,
		Seq:         1,
		Readings: []envelope.Reading{
			{SensorID: 1, Value: 217, Scale: 1, Unit: 1},
		},
	}
	body, err := env.BuildSigned(priv)
	require.NoError(t, err)

	var buf bytes.Buffer
	h := NewHost(nil, &buf)
	h.VerifyKey = pub

	hdr := mdp.NewHeader(mdp.MsgTypeTelemetry, mdp.EndpointRouter, mdp.EndpointGateway)
	hdr.Seq = 1
	h.EmitFrame(5000, hdr, body)

	var line FrameLine
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.NotNil(t, line.Env)

	assert.Equal(t, "mb-A-01", line.Env.DeviceID)
	assert.True(t, line.Env.Verified)
	require.Len(t, line.Env.Readings, 1)
	assert.InDelta(t, 21.7, line.Env.Readings[0].V, 1e-9)
}

func TestEmitTelemetryOpaqueBody(t *testing.T) {
	var buf bytes.Buffer
	h := NewHost(nil, &buf)

	hdr := mdp.NewHeader(mdp.MsgTypeTelemetry, mdp.EndpointRouter, mdp.EndpointGateway)
	h.EmitFrame(1, hdr, []byte{0x01, 0x02, 0x03})

	// a non-envelope body still emits the plain frame line
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "env")
}

func TestEmitReady(t *testing.T) {
	var buf bytes.Buffer
	h := NewHost(nil, &buf)
	h.EmitReady()

	assert.JSONEq(t, `{"side":"gateway","mdp":1,"status":"ready"}`, strings.TrimSpace(buf.String()))
}

func TestHostCommandLine(t *testing.T) {
	pr, pw := io.Pipe()
	var buf bytes.Buffer
	h := NewHost(pr, &buf)

	go pw.Write([]byte(`{"cmd":4,"dst":161,"data":[5,1]}` + "\n"))

	select {
	case req := <-h.Commands():
		assert.Equal(t, uint16(4), req.Cmd)
		assert.Equal(t, uint8(0xA1), req.Dst)
		assert.Equal(t, []uint8{5, 1}, req.Data)

		req.Reply <- CommandResult{Seq: 42}
	case <-time.After(time.Second):
		t.Fatal("command never surfaced")
	}

	// the result line is written asynchronously
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), `"sent":true`) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Contains(t, buf.String(), `"seq":42`)
}

func TestHostCommandLineDefaultsDst(t *testing.T) {
	pr, pw := io.Pipe()
	h := NewHost(pr, &bytes.Buffer{})

	go pw.Write([]byte(`{"cmd":9}` + "\n"))

	select {
	case req := <-h.Commands():
		assert.Equal(t, mdp.EndpointOrigin, req.Dst)
	case <-time.After(time.Second):
		t.Fatal("command never surfaced")
	}
}

func TestHostBadJSONLine(t *testing.T) {
	pr, pw := io.Pipe()
	var buf bytes.Buffer
	NewHost(pr, &buf)

	go pw.Write([]byte("{not json\n"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), "json_parse") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("parse error never reported")
}

func TestSubmitBackpressure(t *testing.T) {
	h := NewHost(nil, &bytes.Buffer{})

	req := CommandRequest{Cmd: 1}
	for i := 0; i < 16; i++ {
		require.True(t, h.Submit(req))
	}
	assert.False(t, h.Submit(req), "17th submit should report saturation")
}
