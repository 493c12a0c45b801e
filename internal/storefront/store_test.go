package storefront

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_SubscribersInOrder(t *testing.T) {
	st := NewStore(State{})

	var calls []string
	for _, name := range []string{"a", "b", "c", "d"} {
		name := name
		st.Subscribe(func(State) { calls = append(calls, name) })
	}
	st.Dispatch(ClearCart{})
	assert.Equal(t, []string{"a", "b", "c", "d"}, calls)
}

func TestStore_Unsubscribe(t *testing.T) {
	st := NewStore(State{})

	var counts [3]int
	unsubs := make([]func(), 3)
	for i := range counts {
		i := i
		unsubs[i] = st.Subscribe(func(State) { counts[i]++ })
	}
	unsubs[1]()
	unsubs[1]()

	got := st.Dispatch(AddItem{Item: Item{ID: 1, Price: 2}, Qty: 3})
	assert.Equal(t, [3]int{1, 0, 1}, counts)
	assert.Equal(t, 3, got.ItemCount())
	assert.Equal(t, got.Cart, st.State().Cart)
}
