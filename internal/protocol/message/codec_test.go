package message_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vaspwire/internal/domain"
	"vaspwire/internal/protocol/message"
)

func header(m domain.Message) domain.Message {
	m.Base().Header.MessageID = "0102"
	m.Base().Header.SessionID = "0304"
	return m
}

func TestParse_SelectsTypeFromHeader(t *testing.T) {
	m := header(domain.NewSessionReply(domain.CodeOK, domain.Topic{0xa, 0xb, 0xc, 0xd}))
	raw, err := message.Marshal(m)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"topicb":"0x0a0b0c0d"`)

	got, err := message.Parse(raw)
	require.NoError(t, err)
	reply, ok := got.(*domain.SessionReply)
	require.True(t, ok)
	require.Equal(t, domain.Topic{0xa, 0xb, 0xc, 0xd}, reply.Handshake.TopicB)
}

func TestParse_RejectsUnknownOrMissingType(t *testing.T) {
	_, err := message.Parse([]byte(`{"msg":{"msgid":"01"}}`))
	require.ErrorIs(t, err, domain.ErrUnknownMessageType)
	_, err = message.Parse([]byte(`{"msg":{"type":"111"}}`))
	require.ErrorIs(t, err, domain.ErrUnknownMessageType)
	_, err = message.Parse([]byte(`{"comment":"no header"}`))
	require.ErrorIs(t, err, domain.ErrUnknownMessageType)
	_, err = message.Parse([]byte(`[`))
	require.ErrorIs(t, err, domain.ErrMalformedPayload)
	_, err = message.Parse([]byte(`{"msg":{"type":"150"},"handshake":{"topicb":"0x01"}}`))
	require.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestMarshal_RejectsRetaggedHeader(t *testing.T) {
	m := header(domain.NewTermination(domain.CodeOK))
	m.Base().Header.Type = domain.TypeSessionRequest
	_, err := message.Marshal(m)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := []domain.Message{
		header(domain.NewSessionRequest(domain.Topic{1}, make([]byte, domain.PublicKeyLength))),
		header(domain.NewSessionReply(domain.CodeDeclined, domain.Topic{})),
		header(domain.NewTransferDispatch(domain.TransferInfo{Tx: &domain.Transaction{TxID: "x"}})),
		header(domain.NewTransferReply(domain.CodeDeclined, domain.TransferInfo{})),
		header(domain.NewTermination(domain.CodeOK)),
	}
	for _, m := range ok {
		require.NoError(t, message.Validate(m), m.MessageType().Name())
	}

	bad := []domain.Message{
		domain.NewTermination(domain.CodeOK),
		header(domain.NewSessionRequest(domain.Topic{}, make([]byte, domain.PublicKeyLength))),
		header(domain.NewSessionRequest(domain.Topic{1}, []byte{4})),
		header(domain.NewSessionReply(domain.CodeOK, domain.Topic{})),
		header(domain.NewTransferRequest(domain.TransferInfo{})),
		header(domain.NewTransferReply(domain.CodeOK, domain.TransferInfo{})),
		header(domain.NewTransferDispatch(domain.TransferInfo{})),
	}
	for _, m := range bad {
		require.Error(t, message.Validate(m), m.MessageType().Name())
	}
}
