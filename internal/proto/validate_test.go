package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinRoomDataValidate(t *testing.T) {
	cases := []struct {
		name    string
		data    JoinRoomData
		wantErr string
	}{
		{
			name: "valid",
			data: JoinRoomData{Participant: Participant{Name: "alice"}, RoomID: "r1"},
		},
		{
			name: "valid avatar",
			data: JoinRoomData{Participant: Participant{Name: "alice", Avatar: "https://img.example/a.png"}, RoomID: "r1"},
		},
		{
			name:    "missing room",
			data:    JoinRoomData{Participant: Participant{Name: "alice"}, RoomID: "  "},
			wantErr: "joinroomdata.roomid",
		},
		{
			name:    "missing name",
			data:    JoinRoomData{Participant: Participant{Name: " "}, RoomID: "r1"},
			wantErr: "joinroomdata.participant.name",
		},
		{
			name:    "bad avatar",
			data:    JoinRoomData{Participant: Participant{Name: "alice", Avatar: "not a url"}, RoomID: "r1"},
			wantErr: "joinroomdata.participant.avatar",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.data.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewEventEnvelope(t *testing.T) {
	out, err := NewEvent(EventPeerJoined, PeerData{ConnectionID: "c1", Participant: Participant{Name: "bob"}})
	require.NoError(t, err)
	require.Equal(t, OutboundTypeEvent, out.Type)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"event","event":"peer-joined","data":{"connectionId":"c1","participant":{"name":"bob"}}}`, string(raw))
}
