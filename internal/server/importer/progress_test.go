package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type call struct {
	processed, total int
	stage            Stage
}

func TestThrottledProgress(t *testing.T) {
	var got []call
	clock := time.Unix(0, 0)
	fn := throttled(func(p, total int, s Stage) { got = append(got, call{p, total, s}) }, time.Second, func() time.Time { return clock })

	fn(0, 0, StageReading)
	fn(1000, 5000, StageInserting)
	clock = clock.Add(100 * time.Millisecond)
	fn(2000, 5000, StageInserting)
	clock = clock.Add(time.Second)
	fn(3000, 5000, StageInserting)
	clock = clock.Add(10 * time.Millisecond)
	fn(4000, 5000, StageInserting)
	fn(5000, 5000, StageInserting)

	assert.Equal(t, []call{
		{0, 0, StageReading},
		{1000, 5000, StageInserting},
		{3000, 5000, StageInserting},
		{5000, 5000, StageInserting},
	}, got)
}

func TestThrottledProgress_Nil(t *testing.T) {
	assert.Nil(t, ThrottledProgress(nil, time.Second))
}
