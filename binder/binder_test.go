package binder

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/edumerge/mail-merge/types"
)

func templateWith(names ...string) *types.Template {
	template := &types.Template{Name: "letter"}
	for _, name := range names {
		template.Segments = append(template.Segments, types.Segment{Kind: types.SegmentPlaceholder, Name: name})
	}
	return template
}

func TestBinderClient_Bind_AllMatched(t *testing.T) {
	binderClient := NewBinderClient(false, logrus.New())

	binding := binderClient.Bind(templateWith("Name", "Grade", "Name"), []string{"Name", "Grade"})

	assert.Empty(t, binding.Unmatched)
	assert.Equal(t, map[string]string{"Name": "Name", "Grade": "Grade"}, binding.Resolved)
}

func TestBinderClient_Bind_Unmatched(t *testing.T) {
	binderClient := NewBinderClient(false, logrus.New())

	binding := binderClient.Bind(templateWith("Missing", "Name", "Other"), []string{"Name"})

	assert.Equal(t, []string{"Missing", "Other"}, binding.Unmatched)
	assert.Equal(t, map[string]string{"Name": "Name"}, binding.Resolved)
}

func TestBinderClient_Bind_CaseInsensitiveFallback(t *testing.T) {
	binderClient := NewBinderClient(false, logrus.New())

	binding := binderClient.Bind(templateWith("firstname"), []string{"FirstName"})

	assert.Empty(t, binding.Unmatched)
	assert.Equal(t, "FirstName", binding.Resolved["firstname"])
}

func TestBinderClient_Bind_StrictCase(t *testing.T) {
	binderClient := NewBinderClient(true, logrus.New())

	binding := binderClient.Bind(templateWith("firstname"), []string{"FirstName"})

	assert.Equal(t, []string{"firstname"}, binding.Unmatched)
}

func TestBinderClient_Bind_AmbiguousCase(t *testing.T) {
	binderClient := NewBinderClient(false, logrus.New())

	binding := binderClient.Bind(templateWith("name", "NAME"), []string{"Name", "nAme"})

	assert.Equal(t, []string{"name", "NAME"}, binding.Unmatched)
}

func TestBinderClient_Bind_ExactWinsOverFolded(t *testing.T) {
	binderClient := NewBinderClient(false, logrus.New())

	binding := binderClient.Bind(templateWith("name"), []string{"Name", "name"})

	assert.Equal(t, "name", binding.Resolved["name"])
}

func TestBinderClient_Bind_UnicodeCaseFolding(t *testing.T) {
	binderClient := NewBinderClient(false, logrus.New())

	binding := binderClient.Bind(templateWith("STRASSE", "ÉCOLE"), []string{"Straße", "école"})

	assert.Empty(t, binding.Unmatched)
	assert.Equal(t, "Straße", binding.Resolved["STRASSE"])
	assert.Equal(t, "école", binding.Resolved["ÉCOLE"])
}
