package progress

import (
	"log"

	"github.com/serprog/serprog/pkg/redis"
)

// RedisReporter mirrors every Progress event into a Redis hash keyed by
// session id and publishes it on a channel of the same name, giving a
// fleet dashboard a live view of an in-progress session without the
// Session Orchestrator depending on Redis directly. Step counts are
// published as separate integer fields (not baked into a string) so a
// dashboard can read them as structured data.
type RedisReporter struct {
	client *redis.Client
}

// NewRedisReporter wires a RedisReporter against an already-connected
// client, as built by redis.New.
func NewRedisReporter(client *redis.Client) *RedisReporter {
	return &RedisReporter{client: client}
}

func (r *RedisReporter) Report(p Progress) {
	key := "serprog:session:" + p.SessionID
	if err := r.client.WriteAndPublishString(key, "stage", p.Stage); err != nil {
		log.Printf("progress: redis report failed: %v", err)
		return
	}
	if err := r.client.WriteAndPublishInt(key, "cur_step", p.CurStep); err != nil {
		log.Printf("progress: redis report failed: %v", err)
		return
	}
	if err := r.client.WriteAndPublishInt(key, "total_steps", p.TotalSteps); err != nil {
		log.Printf("progress: redis report failed: %v", err)
		return
	}
	if p.Detail == "" {
		return
	}
	if err := r.client.WriteAndPublishString(key, "detail", p.Detail); err != nil {
		log.Printf("progress: redis report failed: %v", err)
	}
}
