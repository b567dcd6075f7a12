package main

import (
	"errors"
	"testing"

	"github.com/dd0wney/cluso-controlroom/pkg/txn"
	"github.com/stretchr/testify/assert"
)

func TestHistoryMovedMessage(t *testing.T) {
	tests := []struct {
		name    string
		cs      *txn.ChangeSet
		err     error
		want    string
		wantErr bool
	}{
		{name: "labelled step", cs: &txn.ChangeSet{Label: "drag"}, want: `undid "drag"`},
		{name: "step with no deltas", want: "undid a step with no visible change"},
		{name: "failed step", err: errors.New("nothing to undo"), want: "nothing to undo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m ui
			assert.NotPanics(t, func() {
				m.historyMoved("undid", tt.cs, tt.err)
			})
			assert.Equal(t, tt.want, m.message)
			assert.Equal(t, tt.wantErr, m.messageErr)
		})
	}
}
