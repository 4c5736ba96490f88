package nn

import "testing"

func TestShapeElements(t *testing.T) {
	s := Shape{Height: 256, Width: 128, Channels: 3}
	if got := s.Elements(); got != 256*128*3 {
		t.Errorf("Elements() = %d, want %d", got, 256*128*3)
	}
	if got := s.String(); got != "256x128x3" {
		t.Errorf("String() = %q", got)
	}
}

func TestBuilderAssemblesStack(t *testing.T) {
	network := NewBuilder(Shape{Height: 32, Width: 32, Channels: 3}).
		AddConv2D(16, 3, ActivationReLU, "conv1").
		AddMaxPool2D(2, "pool1").
		AddFlatten("flatten").
		AddDense(10, ActivationSoftmax, "out").
		Build()

	if !network.Trainable {
		t.Error("from-scratch networks must be trainable")
	}
	if network.LayerCount() != 4 {
		t.Fatalf("LayerCount() = %d, want 4", network.LayerCount())
	}

	wantNames := []string{"conv1", "pool1", "flatten", "out"}
	wantTypes := []LayerType{Conv2D, MaxPool2D, Flatten, Dense}
	for i, layer := range network.Layers {
		if layer.Name != wantNames[i] || layer.Type != wantTypes[i] {
			t.Errorf("layer %d = %v %q, want %v %q", i, layer.Type, layer.Name, wantTypes[i], wantNames[i])
		}
	}
}

func TestExtendAppendsToBase(t *testing.T) {
	base := NewBackbone("resnet", "ResNet50", Shape{Height: 64, Width: 64, Channels: 3}, false)
	network := Extend(base).AddFlatten("flatten").Build()

	if network != base {
		t.Fatal("Extend must build onto the same specification")
	}
	if network.LayerCount() != 1 || network.Layers[0].Type != Flatten {
		t.Errorf("unexpected layers: %+v", network.Layers)
	}
}
