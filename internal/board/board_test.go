package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressRoundTrip(t *testing.T) {
	keys := []string{
		"mainIdea", "milestonePrototypeTest", "standards-Math", "standards-English Language Arts",
		"additional-0", "dt-additional-3", "lesson-abc-def-mainActivities",
	}
	for _, key := range keys {
		addr, err := ParseAddress(key)
		require.NoError(t, err, key)
		assert.Equal(t, key, addr.Key())
	}

	addr, err := ParseAddress("lesson-abc-def-mainActivities")
	require.NoError(t, err)
	assert.Equal(t, LessonSectionCell{LessonID: "abc-def", Field: MainActivities}, addr)

	for _, bad := range []string{"", "nope", "additional-x", "dt-additional--1", "lesson-abc-notafield"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrUnknownAddress, bad)
	}
}

func TestWithValueIsCopyOnWrite(t *testing.T) {
	c := NewContentForSubjects([]string{"Math", "Science"})
	c = c.WithAdditional(AreaInitialPlanning).WithAdditional(AreaDesignThinking)

	next := c.WithValue("standards-Science", "NGSS").
		WithValue("mainIdea", "Water").
		WithValue("additional-0", "extra").
		WithValue("dt-additional-0", "dt extra")

	assert.Equal(t, "NGSS", next.Value("standards-Science"))
	assert.Equal(t, "Water", next.Value("mainIdea"))
	assert.Equal(t, "extra", next.Value("additional-0"))
	assert.Equal(t, "dt extra", next.Value("dt-additional-0"))

	assert.Equal(t, "", c.Value("standards-Science"))
	assert.Equal(t, "", c.Value("mainIdea"))
	assert.Equal(t, "", c.Value("additional-0"))
	assert.Equal(t, "", c.Value("dt-additional-0"))
}

func TestWithValueUnknownKeyIsNoop(t *testing.T) {
	c := NewContentForSubjects([]string{"Math"})
	for _, key := range []string{"bogus", "standards-Art", "additional-4", "lesson-x-materials"} {
		assert.Equal(t, c, c.WithValue(key, "v"), key)
		assert.Equal(t, "", c.Value(key))
	}
}

func TestSyncStandards(t *testing.T) {
	existing := []Cell{
		{ID: "1", Label: "Standards: Math", Value: "CCSS"},
		{ID: "2", Label: "Standards: Art", Value: "drop me"},
	}
	out := SyncStandards(existing, []string{"Science", "Math"})
	require.Len(t, out, 2)
	assert.Equal(t, "Standards: Science", out[0].Label)
	assert.Equal(t, "", out[0].Value)
	assert.Equal(t, existing[0], out[1])

	assert.Empty(t, SyncStandards(existing, nil))
}

func TestAdditionalColumns(t *testing.T) {
	c := NewContent().WithAdditional(AreaInitialPlanning).WithAdditional(AreaInitialPlanning)
	require.Len(t, c.InitialPlanning.Additional, 2)
	assert.Equal(t, "Additional", c.InitialPlanning.Additional[0].Label)
	assert.Equal(t, "Custom planning column", c.InitialPlanning.Additional[0].Subtitle)

	c = c.WithValue("additional-1", "second")
	c, ok := c.WithoutAdditional(AreaInitialPlanning, 0)
	require.True(t, ok)
	assert.Equal(t, "second", c.Value("additional-0"))

	dt := NewContent().WithAdditional(AreaDesignThinking)
	assert.Equal(t, "Custom design thinking column", dt.DesignThinking.Additional[0].Subtitle)
}

func TestAgendaMutations(t *testing.T) {
	c := NewContent()
	require.Len(t, c.Agenda, 1)
	c, entry := c.WithAgendaEntry()
	require.Len(t, c.Agenda, 2)

	title := "Empathy Interviews"
	c2, err := c.WithAgendaPatch(entry.ID, AgendaPatch{Leads: &title})
	require.NoError(t, err)
	assert.Equal(t, title, c2.Agenda[1].Leads)
	assert.Equal(t, "", c.Agenda[1].Leads)

	c3, err := c2.WithoutAgendaEntry(entry.ID)
	require.NoError(t, err)
	assert.Len(t, c3.Agenda, 1)

	_, err = c3.WithoutAgendaEntry("missing")
	assert.ErrorIs(t, err, ErrAgendaEntryNotFound)
}

func TestMigrateLegacyMilestonesAndStandards(t *testing.T) {
	raw := `{
		"initialPlanning": {
			"mainIdea": {"id":"a","label":"Main Idea / Topic","value":"Rivers"},
			"standards": {"id":"s","label":"Standards","value":"NGSS 5-ESS2"},
			"noticeReflect": {"id":"n","label":"Notice & Reflect","value":""},
			"openingActivity": {"id":"o","label":"Opening Activity","value":""}
		},
		"designThinking": {
			"drivingQuestion": {"id":"d","label":"Driving Question","value":""},
			"empathize": {"id":"e","label":"Empathize","value":""},
			"define": {"id":"f","label":"Define","value":""},
			"ideate": {"id":"i","label":"Ideate","value":""},
			"prototypeTest": {"id":"p","label":"Prototype & Test","value":""},
			"milestone1": {"id":"m1","label":"Milestone 1","value":"one"},
			"milestone2": {"id":"m2","label":"Milestone 2","value":"two"},
			"milestone3": {"id":"m3","label":"Milestone 3","value":"three"}
		},
		"agenda": []
	}`
	c := Decode(raw)

	assert.Equal(t, "one", c.DesignThinking.MilestoneEmpathize.Value)
	assert.Equal(t, "two", c.DesignThinking.MilestoneDefine.Value)
	assert.Equal(t, "three", c.DesignThinking.MilestonePrototypeTest.Value)
	assert.Equal(t, "", c.DesignThinking.MilestoneIdeate.Value)
	assert.Equal(t, "Milestone: Ideate", c.DesignThinking.MilestoneIdeate.Label)

	require.Len(t, c.InitialPlanning.Standards, 1)
	assert.Equal(t, "Standards: General", c.InitialPlanning.Standards[0].Label)
	assert.Equal(t, "NGSS 5-ESS2", c.InitialPlanning.Standards[0].Value)

	assert.Equal(t, "Community Partners", c.InitialPlanning.CommunityPartners.Label)
	assert.NotNil(t, c.InitialPlanning.Additional)
	assert.NotNil(t, c.DesignThinking.Additional)
}

func TestMigrateIsIdempotent(t *testing.T) {
	var doc map[string]any
	raw := `{"initialPlanning":{"standards":{"value":""}},"designThinking":{"milestone1":null}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.True(t, Migrate(doc))
	once, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.False(t, Migrate(doc))
	twice, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(once), string(twice))

	ip := doc["initialPlanning"].(map[string]any)
	assert.Equal(t, []any{}, ip["standards"])
}

func TestDecodeCurrentShapeIsStable(t *testing.T) {
	c := NewContentForSubjects([]string{"Math"}).WithValue("define", "problem")
	raw, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, c, Decode(raw))
}

func TestDecodeInvalidJSON(t *testing.T) {
	c := Decode("{not json")
	assert.Equal(t, "Main Idea / Topic", c.InitialPlanning.MainIdea.Label)
	assert.Len(t, c.Agenda, 1)
}

func TestLoadDefaultsSubjects(t *testing.T) {
	c, subjects := Load("", nil)
	assert.Equal(t, DefaultSubjects, subjects)
	require.Len(t, c.InitialPlanning.Standards, 4)
	assert.Equal(t, "Standards: Social Studies", c.InitialPlanning.Standards[3].Label)
	assert.Nil(t, DecodeSubjects("not json"))
	assert.Equal(t, []string{"Art"}, DecodeSubjects(`["Art"]`))
}

func TestProgress(t *testing.T) {
	c := NewContentForSubjects([]string{"Math"})
	p := ComputeProgress(c, Context{})
	assert.Equal(t, 0, p.FilledCellCount)
	assert.False(t, p.CanGenerateBoard)
	assert.False(t, p.CanGenerateTitle)

	c = c.WithValue("mainIdea", "Rivers").WithValue("standards-Math", "5.NBT").WithValue("milestoneDefine", "x")
	p = ComputeProgress(c, Context{State: "MI", GradeLevel: "5", Subjects: []string{"Math"}})
	assert.Equal(t, 2, p.FilledCellCount)
	assert.True(t, p.CanGenerateBoard)
	assert.True(t, p.CanGenerateTitle)
	assert.True(t, p.ContextComplete)
	assert.False(t, p.Complete)

	for _, name := range DesignThinkingFixed {
		c = c.WithValue(string(name), "done")
	}
	assert.True(t, c.Complete())
}

func TestChangedCells(t *testing.T) {
	a := NewContentForSubjects([]string{"Math"})
	b := a.WithValue("ideate", "brainstorm").WithValue("standards-Math", "CCSS")
	changed := ChangedCells(a, b)
	require.Len(t, changed, 2)
	assert.Equal(t, "standards-Math", changed[0].Key)
	assert.Equal(t, "ideate", changed[1].Key)
	assert.Equal(t, "Ideate", changed[1].Label)
}

func TestLessonFields(t *testing.T) {
	var l LessonContent
	l = l.WithField(WarmUpHook, "hook")
	assert.Equal(t, "hook", l.Field(WarmUpHook))
	assert.Equal(t, "Warm-Up / Hook", WarmUpHook.Label())
	_, ok := ParseLessonField("nope")
	assert.False(t, ok)
	assert.Len(t, LessonFields, 7)
}
