package loader

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/pkg/errors"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	resolver gltfBufferResolver
}

// gltfAnimationExtractor converts glTF animations into keyframe tracks, one per (node, path) pair.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation clip by index.
	// Channels that cannot be built are dropped and reported; the clip fails only when no track survives.
	//
	// Parameters:
	//   - ctx: cancellation is checked between channels
	//   - animIndex: the index of the animation to extract
	//
	// Returns:
	//   - *model.AnimationClip: the clip, or nil when it failed
	//   - []error: the dropped channels
	//   - error: error if the clip as a whole could not be built
	ExtractAnimation(ctx context.Context, animIndex int) (*model.AnimationClip, []error, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor.
//
// Parameters:
//   - resolver: the accessor source
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(resolver gltfBufferResolver) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{resolver: resolver}
}

type gltfChannelKey struct {
	node int
	path model.TrackPath
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(ctx context.Context, animIndex int) (*model.AnimationClip, []error, error) {
	doc := e.resolver.Document()
	anim := &doc.Animations[animIndex]

	clip := &model.AnimationClip{
		Name:  anim.Name,
		Index: animIndex,
	}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", animIndex)
	}

	bound := make(map[gltfChannelKey]int)
	var dropped []error

	for i := range anim.Channels {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		ch := &anim.Channels[i]

		// Channels without a node are driven by extensions such as KHR_animation_pointer.
		if ch.Target.Node == nil {
			continue
		}
		path, ok := gltfTrackPath(ch.Target.Path)
		if !ok {
			continue
		}

		key := gltfChannelKey{node: *ch.Target.Node, path: path}
		if first, dup := bound[key]; dup {
			dropped = append(dropped, errors.Wrapf(ErrDuplicateChannel, "channel %d: node %d %s already bound by channel %d", i, key.node, path, first))
			continue
		}

		track, err := e.buildTrack(ctx, anim, ch, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			dropped = append(dropped, errors.WithMessagef(err, "channel %d", i))
			continue
		}

		bound[key] = i
		clip.Tracks = append(clip.Tracks, *track)
		if end := track.EndTime(); end > clip.Duration {
			clip.Duration = end
		}
	}

	if len(clip.Tracks) == 0 {
		if len(dropped) > 0 {
			return nil, dropped, dropped[len(dropped)-1]
		}
		return nil, nil, errors.Wrapf(ErrFormat, "animation %d has no usable channels", animIndex)
	}
	return clip, dropped, nil
}

func (e *gltfAnimationExtractorImpl) buildTrack(ctx context.Context, anim *gltfAnimation, ch *gltfAnimChannel, path model.TrackPath) (*model.Track, error) {
	doc := e.resolver.Document()
	sampler := &anim.Samplers[ch.Sampler]
	node := *ch.Target.Node

	track := &model.Track{
		Node:          node,
		NodeName:      doc.Nodes[node].Name,
		Path:          path,
		Interpolation: gltfInterpolation(sampler.Interpolation),
	}

	times, err := e.resolver.ReadScalars(ctx, sampler.Input)
	if err != nil {
		return nil, errors.WithMessage(err, "input")
	}
	if len(times) == 0 {
		return nil, errors.Wrap(ErrFormat, "no keyframes")
	}
	for k := 1; k < len(times); k++ {
		if times[k] <= times[k-1] {
			return nil, errors.Wrapf(ErrTimeOrder, "key %d at %gs follows %gs", k, times[k], times[k-1])
		}
	}
	track.Times = times

	wantType := gltfAccessorTypeVec3
	switch path {
	case model.PathRotation:
		wantType = gltfAccessorTypeVec4
	case model.PathWeights:
		wantType = gltfAccessorTypeScalar
	}
	if got := doc.Accessors[sampler.Output].Type; got != wantType {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s output is %s, want %s", path, got, wantType)
	}

	output, err := e.resolver.Resolve(ctx, sampler.Output)
	if err != nil {
		return nil, errors.WithMessage(err, "output")
	}

	perKey := 1
	if track.Interpolation == model.InterpolationCubicSpline {
		perKey = 3
	}
	values := len(output.Values)
	switch path {
	case model.PathWeights:
		if values == 0 || values%(len(times)*perKey) != 0 {
			return nil, errors.Wrapf(ErrFormat, "%d weight values do not divide into %d keys", values, len(times))
		}
		track.Components = values / (len(times) * perKey)
	default:
		track.Components = output.Components
		if output.Count != len(times)*perKey {
			return nil, errors.Wrapf(ErrFormat, "%d output values for %d keys", output.Count, len(times))
		}
	}

	track.Values = make([]float32, values)
	for i, v := range output.Values {
		track.Values[i] = float32(v)
	}
	return track, nil
}

func gltfTrackPath(path string) (model.TrackPath, bool) {
	switch path {
	case gltfAnimPathTranslation:
		return model.PathTranslation, true
	case gltfAnimPathRotation:
		return model.PathRotation, true
	case gltfAnimPathScale:
		return model.PathScale, true
	case gltfAnimPathWeights:
		return model.PathWeights, true
	default:
		return 0, false
	}
}

func gltfInterpolation(s string) model.Interpolation {
	switch s {
	case gltfAnimInterpolationStep:
		return model.InterpolationStep
	case gltfAnimInterpolationCubicSpline:
		return model.InterpolationCubicSpline
	default:
		return model.InterpolationLinear
	}
}
