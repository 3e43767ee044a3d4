package analysis

// Population names accepted in plans.
const (
	PopulationOnCampus   = "on_campus"
	PopulationApartments = "apartments"
	PopulationAll        = "all"
)

// OnCampusBuildings are the residence halls and plazas.
var OnCampusBuildings = []string{
	"De Neve Plaza",
	"De Neve Residence Hall",
	"Dykstra Hall",
	"Hedrick Hall",
	"Hedrick Summit",
	"Hitch Suites",
	"Olympic / Centennial",
	"Rieber Hall",
	"Rieber Terrace",
	"Rieber Vista",
	"Saxon Suites",
	"Sproul Hall",
	"Sproul Landing / Cove",
	"Sunset Village",
}

// ApartmentBuildings are the university apartments.
var ApartmentBuildings = []string{
	"Gayley Court Apartments",
	"Gayley Heights",
	"Glenrock Apartments",
	"Glenrock West Apartments",
	"Landfair Apartments",
	"Landfair Vista Apartments",
	"Laurel",
	"Levering Terrace Apartments",
	"Palo Verde",
	"Tipuana",
	"Westwood Chateau Apartments",
	"Westwood Palms Apartments",
}

// populationBuildings returns the building filter for a run. An explicit
// buildings list wins; nil means no filter.
func populationBuildings(population string, explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	switch population {
	case PopulationOnCampus:
		return OnCampusBuildings
	case PopulationApartments:
		return ApartmentBuildings
	}
	return nil
}
