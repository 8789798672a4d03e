package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubMailer_RecordsCalls(t *testing.T) {
	stub := NewStubMailer(true)

	result, err := stub.SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "stub", result.Provider)
	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, *testMessage(), calls[0])
}

func TestStubMailer_ProgrammedFailure(t *testing.T) {
	stub := NewStubMailer(false)

	result, err := stub.SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestStubMailer_ProgrammedError(t *testing.T) {
	stub := &StubMailer{Success: true, Err: errors.New("boom")}

	result, err := stub.SendMail(context.Background(), testMessage())

	require.EqualError(t, err, "boom")
	assert.False(t, result.Success)
}

func TestDemoMailer_OverridesFailure(t *testing.T) {
	inner := &StubMailer{Err: newDeliveryError("stub", 401, "sending domain not verified")}
	demo := NewDemoMailer(inner)

	result, err := demo.SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Overridden)
	assert.False(t, result.RawSuccess)
	assert.Equal(t, "stub", demo.Name())
	assert.Same(t, inner, demo.Inner())
	assert.Len(t, inner.Calls(), 1)
}

func TestDemoMailer_KeepsRealSuccess(t *testing.T) {
	demo := NewDemoMailer(NewStubMailer(true))

	result, err := demo.SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.RawSuccess)
	assert.True(t, result.Overridden)
}

func TestDemoMailer_TransportErrorWithoutResult(t *testing.T) {
	fake := newVendorFake(t, 500, `{"status":"error","name":"GeneralError","message":"oops"}`, nil)
	cfg := testConfig()
	cfg.MandrillAPIURL = fake.URL

	result, err := NewDemoMailer(NewMandrillService(cfg)).SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.RawSuccess)
	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, "mandrill", result.Provider)
	assert.Equal(t, 1, fake.requestCount())
}
