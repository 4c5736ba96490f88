package models

import (
	"testing"

	"github.com/openimaging/go-trainer/nn"
)

func TestUNetIsSegmentationPassthrough(t *testing.T) {
	spec, err := Resolve("unet")
	if err != nil {
		t.Fatal(err)
	}
	base, err := Build(spec, testShape)
	if err != nil {
		t.Fatal(err)
	}

	// Segmentation networks get no extra head.
	network, err := AttachHead(base, spec.Task)
	if err != nil {
		t.Fatal(err)
	}
	if network != base {
		t.Error("segmentation head must pass the base network through")
	}
}

func TestUNetTopology(t *testing.T) {
	_, network, err := ResolveAndBuild("unet", testShape)
	if err != nil {
		t.Fatal(err)
	}

	var pools, upsamples, concats int
	for _, layer := range network.Layers {
		switch layer.Type {
		case nn.MaxPool2D:
			pools++
		case nn.UpSample2D:
			upsamples++
		case nn.Concat:
			concats++
		}
	}
	if pools != 4 || upsamples != 4 || concats != 4 {
		t.Errorf("got %d pools, %d upsamples, %d concats, want 4 of each", pools, upsamples, concats)
	}

	out := network.Layers[len(network.Layers)-1]
	if out.Type != nn.Conv2D || out.Name != "mask" {
		t.Fatalf("final layer = %v %q, want Conv2D \"mask\"", out.Type, out.Name)
	}
	if act, _ := out.Parameters["activation"].(string); act != string(nn.ActivationSigmoid) {
		t.Errorf("mask activation = %v, want sigmoid", out.Parameters["activation"])
	}
	if filters, _ := out.Parameters["filters"].(int); filters != 1 {
		t.Errorf("mask filters = %v, want 1", out.Parameters["filters"])
	}
}
