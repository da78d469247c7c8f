package ai

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestExtractSteps(t *testing.T) {
	var tenBullets, sevenLines []string
	for i := 1; i <= 10; i++ {
		tenBullets = append(tenBullets, fmt.Sprintf("- bullet number %d", i))
	}
	for i := 1; i <= 7; i++ {
		sevenLines = append(sevenLines, fmt.Sprintf("Plain line number %d", i))
	}

	tests := []struct {
		name     string
		solution string
		want     []string
	}{
		{
			name:     "continuation lines join the open step",
			solution: "Step 1: Add 2 and 3\nThis gives five.\n\nStep 2: Multiply by ten\n",
			want:     []string{"Step 1: Add 2 and 3 This gives five.", "Step 2: Multiply by ten"},
		},
		{
			name:     "preamble kept before numbered steps",
			solution: "Let us solve this carefully.\n1. First compute the area\n2. Then the perimeter",
			want:     []string{"Let us solve this carefully.", "1. First compute the area", "2. Then the perimeter"},
		},
		{
			name:     "step mentioned near line start",
			solution: "Next step: divide both sides\nby four",
			want:     []string{"Next step: divide both sides by four"},
		},
		{
			name:     "duplicates removed",
			solution: "- same bullet item\n- same bullet item\n* another bullet",
			want:     []string{"- same bullet item", "* another bullet"},
		},
		{
			name:     "at most eight steps",
			solution: strings.Join(tenBullets, "\n"),
			want:     tenBullets[:8],
		},
		{
			name:     "preamble capped at six lines",
			solution: strings.Join(sevenLines, "\n"),
			want:     sevenLines[:6],
		},
		{
			name:     "short steps dropped",
			solution: "ok\nStep 1: x",
			want:     []string{DefaultStep},
		},
		{
			name:     "blank solution",
			solution: "  \n\n ",
			want:     []string{DefaultStep},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSteps(tt.solution)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractSteps() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrompts(t *testing.T) {
	text := GetTextPrompt("What is 2+2?", "Mathematics")
	if !strings.Contains(text, "Question: What is 2+2?") || !strings.Contains(text, "this mathematics question") {
		t.Fatalf("text prompt = %q", text)
	}

	img := GetImagePrompt("   ", "Physics")
	if !strings.Contains(img, "Question: "+DefaultImageQuestion) {
		t.Fatalf("image prompt without question should use default: %q", img)
	}
	if !strings.Contains(img, "contains a physics problem") {
		t.Fatalf("image prompt = %q", img)
	}
}
