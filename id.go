package hiveq

import "github.com/hiveq/hiveq/internal/qid"

// QueueID identifies a queue, whether standalone or manager-hosted, for
// the lifetime of the process that created it.
type QueueID = qid.ID
