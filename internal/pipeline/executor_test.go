package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kazanim-analiz/internal/analysis"
)

func TestRunNodeSuccessPassesUpdateThrough(t *testing.T) {
	n := Node{
		Name:   StepInput,
		Budget: time.Second,
		Run: func(_ context.Context, _ analysis.State) (analysis.Update, error) {
			return analysis.Update{ExtractedText: analysis.String("soru"), CurrentStep: analysis.String(StepInput)}, nil
		},
	}
	u := runNode(context.Background(), n, analysis.State{})
	require.NotNil(t, u.ExtractedText)
	assert.Equal(t, "soru", *u.ExtractedText)
	assert.Nil(t, u.Error)
}

func TestRunNodeTimeoutBecomesData(t *testing.T) {
	n := Node{
		Name:   StepInput,
		Budget: 30 * time.Millisecond,
		Run: func(ctx context.Context, _ analysis.State) (analysis.Update, error) {
			<-ctx.Done()
			return analysis.Update{}, ctx.Err()
		},
	}
	u := runNode(context.Background(), n, analysis.State{})

	require.NotNil(t, u.Error)
	assert.Equal(t, "timeout in "+StepInput, *u.Error)
	require.NotNil(t, u.CurrentStep)
	assert.Equal(t, StepInput+"_timeout", *u.CurrentStep)
	require.NotNil(t, u.ErrorKind)
	assert.Equal(t, analysis.ErrTimeout, *u.ErrorKind)
}

func TestRunNodeFaultBecomesData(t *testing.T) {
	n := Node{
		Name:   StepObjectives,
		Budget: time.Second,
		Run: func(_ context.Context, _ analysis.State) (analysis.Update, error) {
			return analysis.Update{}, errors.New("objective search: connection refused")
		},
	}
	u := runNode(context.Background(), n, analysis.State{})

	require.NotNil(t, u.Error)
	assert.Contains(t, *u.Error, "connection refused")
	require.NotNil(t, u.CurrentStep)
	assert.Equal(t, StepObjectives+"_error", *u.CurrentStep)
	require.NotNil(t, u.ErrorKind)
	assert.Equal(t, analysis.ErrFault, *u.ErrorKind)
}

func TestRunNodePanicBecomesData(t *testing.T) {
	n := Node{
		Name:   StepRerank,
		Budget: time.Second,
		Run: func(_ context.Context, _ analysis.State) (analysis.Update, error) {
			panic("index out of range")
		},
	}
	u := runNode(context.Background(), n, analysis.State{})

	require.NotNil(t, u.Error)
	assert.Contains(t, *u.Error, "index out of range")
	require.NotNil(t, u.CurrentStep)
	assert.Equal(t, StepRerank+"_error", *u.CurrentStep)
}
