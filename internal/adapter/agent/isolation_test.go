package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marhaba/internal/domain"
	"marhaba/internal/usecase/multiagent"
)

func TestSlowAgentDoesNotDelaySiblings(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/food-recommender"):
			select {
			case <-r.Context().Done():
			case <-release:
			}
		case strings.HasSuffix(r.URL.Path, "/restaurant-agent"):
			fmt.Fprint(w, eventLine(t, "done", "Dine at La Sqala in the old medina."))
		default:
			http.NotFound(w, r)
		}
	})
	t.Cleanup(func() { close(release) })

	client := NewClient(srv.URL, WithTimeouts(300*time.Millisecond, 200*time.Millisecond))
	router := multiagent.NewRelevanceRouter(multiagent.NewRegistry(), multiagent.DefaultSelectionThreshold)
	orch := multiagent.NewOrchestrator(router, client)

	start := time.Now()
	res := orch.Orchestrate(context.Background(),
		"I want to try authentic Moroccan cuisine and find the best restaurants in Casablanca")
	elapsed := time.Since(start)

	require.Len(t, res.PerAgentResults, 1)
	assert.Equal(t, "restaurant-agent", res.PerAgentResults[0].AgentName)
	assert.Equal(t, "Dine at La Sqala in the old medina.", res.CombinedText)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "food-recommender", res.Failures[0].AgentName)
	assert.True(t, errors.Is(res.Failures[0].Err, domain.ErrTimeout))
	assert.Less(t, elapsed, 2*time.Second)
}
