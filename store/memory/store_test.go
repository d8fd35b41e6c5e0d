package memory_test

import (
	"testing"

	"github.com/xraph/depot/store"
	"github.com/xraph/depot/store/memory"
	"github.com/xraph/depot/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}
