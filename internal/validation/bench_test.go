package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/patrickoleary/vtkapi-mcp/internal/apiindex"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
)

// syntheticIndex builds an index of n classes spread over 40 modules, each
// with a dozen methods.
func syntheticIndex(n int) *apiindex.Index {
	docs := make([]apiindex.Document, 0, n+2)
	for i := 0; i < n; i++ {
		methods := apiindex.MethodDocs{}
		for j := 0; j < 12; j++ {
			name := fmt.Sprintf("SetProperty%d", j)
			methods[name] = name + "(self, value) -> None"
		}
		docs = append(docs, apiindex.Document{
			ClassName:  fmt.Sprintf("vtkSynthetic%04d", i),
			ModuleName: fmt.Sprintf("vtkmodules.vtkSynthetic%02d", i%40),
			StructuredDocs: &apiindex.StructuredDocs{Sections: map[string]apiindex.Section{
				"Methods defined here": {Methods: methods},
			}},
		})
	}
	docs = append(docs,
		apiindex.Document{ClassName: "vtkActor", ModuleName: "vtkmodules.vtkRenderingCore"},
		apiindex.Document{ClassName: "vtkPolyDataMapper", ModuleName: "vtkmodules.vtkRenderingCore"},
	)
	return apiindex.New(docs)
}

const benchCode = `from vtkmodules.vtkSynthetic01 import vtkSynthetic0001
from vtkmodules.vtkSynthetic03 import vtkSynthetic0002
from vtkmodules.vtkRenderingCore import vtkActor, vtkPolyDataMapper
import vtkmodules.vtkRenderingOpenGL2

a = vtkSynthetic0001()
a.SetProperty3(1)
a.SetPropertyy4(2)
b = vtkSynthetic0002()
b.SetProperty7(3)
c = vtkSynthetc0003()
actor = vtkActor()
`

// BenchmarkValidateCode measures a full validation pass over a mixed sample
// against a 5 000 class index.
func BenchmarkValidateCode(b *testing.B) {
	v := New(syntheticIndex(5000), config.DefaultBackendModules)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.ValidateCode(benchCode)
	}
}

// BenchmarkValidateCodeParallel measures concurrent validations sharing one
// validator.
func BenchmarkValidateCodeParallel(b *testing.B) {
	v := New(syntheticIndex(5000), config.DefaultBackendModules)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = v.ValidateCode(benchCode)
		}
	})
}

// BenchmarkSuggestClass measures the fuzzy lookup used for unknown classes.
func BenchmarkSuggestClass(b *testing.B) {
	v := New(syntheticIndex(5000), config.DefaultBackendModules)
	code := strings.Repeat("x = vtkSynthetc0042()\n", 4)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.ValidateCode(code)
	}
}
