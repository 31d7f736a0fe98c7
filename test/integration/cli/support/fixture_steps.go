package support

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pagescan/internal/pdf"
	"github.com/MeKo-Tech/pagescan/internal/testutil"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// pageScene is the 200x200 photo with a white page spanning (40,40)-(160,160).
func pageScene() *image.Gray {
	return testutil.RectPage(testutil.DefaultPageConfig())
}

func (testCtx *TestContext) saveImage(name string, img image.Image) error {
	p := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return utils.SavePNG(p, img)
}

func (testCtx *TestContext) aPagePhotoNamed(name string) error {
	return testCtx.saveImage(name, pageScene())
}

func (testCtx *TestContext) aTiltedPagePhotoNamed(name string) error {
	img, _ := testutil.PerspectivePage(300, 200, 0.3, 0.2, testutil.MediumSize)
	return testCtx.saveImage(name, img)
}

func (testCtx *TestContext) aBlankImageNamed(name string) error {
	return testCtx.saveImage(name, image.NewGray(image.Rect(0, 0, 100, 100)))
}

func (testCtx *TestContext) aWideImageNamed(w, h int, name string) error {
	return testCtx.saveImage(name, image.NewGray(image.Rect(0, 0, w, h)))
}

func (testCtx *TestContext) aScannedPDFNamed(pages int, name string) error {
	imgs := make([]image.Image, pages)
	for i := range imgs {
		imgs[i] = pageScene()
	}
	return pdf.WriteImages(imgs, testCtx.path(name))
}

func (testCtx *TestContext) aTextFileNamed(name string) error {
	return os.WriteFile(testCtx.path(name), []byte("not an image"), 0o600)
}

func (testCtx *TestContext) aConfigFileWith(content *godog.DocString) error {
	return os.WriteFile(testCtx.path("pagescan.yaml"), []byte(content.Content), 0o600)
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.setEnv(name, value)
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if !testutil.FileExists(testCtx.path(name)) {
		return fmt.Errorf("file %s does not exist", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if testutil.FileExists(testCtx.path(name)) {
		return fmt.Errorf("file %s exists", name)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeByPixels(name string, w, h int) error {
	img, _, err := utils.LoadImage(testCtx.path(name))
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("%s is %dx%d, want %dx%d", name, b.Dx(), b.Dy(), w, h)
	}
	return nil
}

func (testCtx *TestContext) theImageWidthShouldBeAbout(name string, w, tolerance int) error {
	img, _, err := utils.LoadImage(testCtx.path(name))
	if err != nil {
		return err
	}
	if got := img.Bounds().Dx(); got < w-tolerance || got > w+tolerance {
		return fmt.Errorf("%s is %d pixels wide, want %d±%d", name, got, w, tolerance)
	}
	return nil
}

func (testCtx *TestContext) thePDFShouldHavePages(name string, pages int) error {
	n, err := pdf.PageCount(testCtx.path(name))
	if err != nil {
		return err
	}
	if n != pages {
		return fmt.Errorf("%s has %d pages, want %d", name, n, pages)
	}
	return nil
}

// RegisterFixtureSteps registers steps that create and inspect files.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a photo of a page named "([^"]*)"$`, testCtx.aPagePhotoNamed)
	sc.Step(`^a tilted photo of a page named "([^"]*)"$`, testCtx.aTiltedPagePhotoNamed)
	sc.Step(`^a blank image named "([^"]*)"$`, testCtx.aBlankImageNamed)
	sc.Step(`^a (\d+)x(\d+) image named "([^"]*)"$`, testCtx.aWideImageNamed)
	sc.Step(`^a scanned PDF with (\d+) pages? named "([^"]*)"$`, testCtx.aScannedPDFNamed)
	sc.Step(`^a text file named "([^"]*)"$`, testCtx.aTextFileNamed)
	sc.Step(`^a config file with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+) pixels$`, testCtx.theImageShouldBeByPixels)
	sc.Step(`^the image "([^"]*)" should be about (\d+) pixels wide \(±(\d+)\)$`, testCtx.theImageWidthShouldBeAbout)
	sc.Step(`^the PDF "([^"]*)" should have (\d+) pages?$`, testCtx.thePDFShouldHavePages)
}
