package protocol

import (
	"encoding/json"
	"testing"
)

// Error replies carry nothing but the code: the embedded profile pointer
// stays nil and its fields must not leak into the encoded object.
func TestErrorRepliesMarshalBare(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"login", LoginResponse{Error: CodeTokenInvalid}},
		{"search", SearchResponse{Error: CodeUIDInvalid}},
		{"auth friend", AuthFriendResponse{Error: CodeRPCFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(m) != 1 {
				t.Errorf("reply = %s, want only the error field", b)
			}
			if _, ok := m["error"]; !ok {
				t.Errorf("reply %s is missing the error field", b)
			}
		})
	}
}

func TestLoginResponseFlattensProfile(t *testing.T) {
	rsp := LoginResponse{
		Error: CodeSuccess,
		UserProfile: &UserProfile{
			UID:  1001,
			Name: "alice",
			Nick: "al",
			Sex:  1,
			Icon: ":/res/head_1.jpg",
		},
		FriendList: []FriendEntry{{UID: 1002, Name: "bob", Back: "bobby"}},
	}

	b, err := json.Marshal(rsp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["uid"] != float64(1001) {
		t.Errorf("uid = %v, want 1001 at top level", m["uid"])
	}
	if m["name"] != "alice" {
		t.Errorf("name = %v, want alice at top level", m["name"])
	}
	if _, ok := m["apply_list"]; ok {
		t.Error("empty apply_list should be omitted")
	}

	var back LoginResponse
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.UserProfile == nil || back.UID != 1001 || back.Nick != "al" {
		t.Errorf("decoded profile = %+v, want uid 1001 nick al", back.UserProfile)
	}
	if len(back.FriendList) != 1 || back.FriendList[0].Back != "bobby" {
		t.Errorf("decoded friend_list = %+v", back.FriendList)
	}
}
