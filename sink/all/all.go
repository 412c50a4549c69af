// Package all registers every sink backend.
package all

import (
	_ "github.com/kbukum/parallelio/sink/columnar"
	_ "github.com/kbukum/parallelio/sink/kafka"
	_ "github.com/kbukum/parallelio/sink/memory"
	_ "github.com/kbukum/parallelio/sink/object"
	_ "github.com/kbukum/parallelio/sink/record"
	_ "github.com/kbukum/parallelio/sink/redis"
	_ "github.com/kbukum/parallelio/sink/sqlite"
)
