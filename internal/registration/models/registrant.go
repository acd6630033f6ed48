package models

import (
	"encoding/json"
	"fmt"

	id "festreg/pkg/domain"
)

type RegistrantKind string

const (
	RegistrantParticipant RegistrantKind = "participant"
	RegistrantTeam        RegistrantKind = "team"
)

// Registrant is exactly one of a participant or a team. The zero value is
// invalid; build one with ParticipantRegistrant or TeamRegistrant.
type Registrant struct {
	kind          RegistrantKind
	participantID id.ParticipantID
	teamID        id.TeamID
}

func ParticipantRegistrant(pid id.ParticipantID) Registrant {
	return Registrant{kind: RegistrantParticipant, participantID: pid}
}

func TeamRegistrant(tid id.TeamID) Registrant {
	return Registrant{kind: RegistrantTeam, teamID: tid}
}

func (r Registrant) Kind() RegistrantKind { return r.kind }

func (r Registrant) IsZero() bool { return r.kind == "" }

func (r Registrant) ParticipantID() (id.ParticipantID, bool) {
	return r.participantID, r.kind == RegistrantParticipant
}

func (r Registrant) TeamID() (id.TeamID, bool) {
	return r.teamID, r.kind == RegistrantTeam
}

func (r Registrant) String() string {
	switch r.kind {
	case RegistrantParticipant:
		return "participant:" + r.participantID.String()
	case RegistrantTeam:
		return "team:" + r.teamID.String()
	}
	return "none"
}

type registrantJSON struct {
	Kind RegistrantKind `json:"kind"`
	ID   string         `json:"id"`
}

func (r Registrant) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case RegistrantParticipant:
		return json.Marshal(registrantJSON{Kind: r.kind, ID: r.participantID.String()})
	case RegistrantTeam:
		return json.Marshal(registrantJSON{Kind: r.kind, ID: r.teamID.String()})
	}
	return []byte("null"), nil
}

func (r *Registrant) UnmarshalJSON(b []byte) error {
	var raw registrantJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case RegistrantParticipant:
		pid, err := id.ParseParticipantID(raw.ID)
		if err != nil {
			return err
		}
		*r = ParticipantRegistrant(pid)
	case RegistrantTeam:
		tid, err := id.ParseTeamID(raw.ID)
		if err != nil {
			return err
		}
		*r = TeamRegistrant(tid)
	default:
		return fmt.Errorf("unknown registrant kind %q", raw.Kind)
	}
	return nil
}
